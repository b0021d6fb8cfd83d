package main

import (
	"github.com/spf13/pflag"

	"github.com/nkiryanov/passgate/internal/config"
)

const (
	defaultWorkers     = 10
	defaultMetricsAddr = "localhost:9102"
)

type Config struct {
	config.Common

	// Database to connect to
	DatabaseDSN string

	// Count of requests handled concurrently
	Workers int

	// Bcrypt cost, default one if zero
	HashCost int

	// Address GET /metrics is served on, disabled if empty
	MetricsAddr string
}

func NewConfig() *Config {
	return &Config{
		Common:      config.NewCommon(),
		Workers:     defaultWorkers,
		MetricsAddr: defaultMetricsAddr,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	envMap, err := config.DotEnv(getwd)
	if err != nil || envMap == nil {
		return err
	}

	return c.LoadEnv(func(key string) string {
		return envMap[key]
	})
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	setters := c.Setters()
	setters["DATABASE_URI"] = config.String(&c.DatabaseDSN)
	setters["WORKERS"] = config.Int(&c.Workers)
	setters["BCRYPT_COST"] = config.Int(&c.HashCost)
	setters["METRICS_ADDRESS"] = config.String(&c.MetricsAddr)

	return config.Apply(setters, getenv)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("usersvc", pflag.ContinueOnError)

	c.AddFlags(fs)
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "Count of requests handled concurrently")
	fs.IntVar(&c.HashCost, "bcrypt-cost", c.HashCost, "Bcrypt cost passwords are hashed with")
	fs.StringVarP(&c.MetricsAddr, "metrics-address", "m", c.MetricsAddr, "Address metrics are served on, empty to disable")

	return fs.Parse(args)
}
