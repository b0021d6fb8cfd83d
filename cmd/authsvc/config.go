package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/passgate/internal/config"
	"github.com/nkiryanov/passgate/internal/tokencodec"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultWorkers         = 10
	defaultMetricsAddr     = "localhost:9101"
)

type Config struct {
	config.Common

	// Symmetric key tokens are signed with
	SecretKey string

	// Token issuer ('iss' claim)
	Issuer string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Accept every refresh token once only; requires database
	ReuseDetection bool

	// Database used refresh tokens are recorded in
	DatabaseDSN string

	// Count of requests handled concurrently
	Workers int

	// Address GET /metrics is served on, disabled if empty
	MetricsAddr string
}

func NewConfig() *Config {
	return &Config{
		Common:      config.NewCommon(),
		AccessTTL:   defaultAccessTokenTTL,
		RefreshTTL:  defaultRefreshTokenTTL,
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
	setters["JWT_SECRET"] = config.String(&c.SecretKey)
	setters["JWT_ISSUER"] = config.String(&c.Issuer)
	setters["JWT_ACCESS_TOKEN_EXPIRES"] = config.Duration(&c.AccessTTL)
	setters["JWT_REFRESH_TOKEN_EXPIRES"] = config.Duration(&c.RefreshTTL)
	setters["REFRESH_REUSE_DETECTION"] = config.Bool(&c.ReuseDetection)
	setters["DATABASE_URI"] = config.String(&c.DatabaseDSN)
	setters["WORKERS"] = config.Int(&c.Workers)
	setters["METRICS_ADDRESS"] = config.String(&c.MetricsAddr)

	return config.Apply(setters, getenv)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authsvc", pflag.ContinueOnError)

	c.AddFlags(fs)
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key tokens are signed with")
	fs.StringVar(&c.Issuer, "issuer", c.Issuer, "Token issuer")
	fs.DurationVar(&c.AccessTTL, "access-ttl", c.AccessTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTTL, "refresh-ttl", c.RefreshTTL, "Refresh token lifetime")
	fs.BoolVar(&c.ReuseDetection, "reuse-detection", c.ReuseDetection, "Accept every refresh token once only")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "Count of requests handled concurrently")
	fs.StringVarP(&c.MetricsAddr, "metrics-address", "m", c.MetricsAddr, "Address metrics are served on, empty to disable")

	return fs.Parse(args)
}

// Validate token lifetimes, 'exp' claim has whole second precision
func (c *Config) Validate() error {
	if c.AccessTTL < tokencodec.MinTTL {
		return fmt.Errorf("access token lifetime must be at least %s, got %s", tokencodec.MinTTL, c.AccessTTL)
	}
	if c.RefreshTTL < tokencodec.MinTTL {
		return fmt.Errorf("refresh token lifetime must be at least %s, got %s", tokencodec.MinTTL, c.RefreshTTL)
	}

	return nil
}
