// Package config holds pieces every binary loads its configuration with
//
// Options are applied in order: defaults, '.env' file, environment, command line flags
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/passgate/internal/bus"
	"github.com/nkiryanov/passgate/internal/bus/memory"
	"github.com/nkiryanov/passgate/internal/bus/redisbus"
	"github.com/nkiryanov/passgate/internal/logger"
)

const (
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultBusURL       = "redis://localhost:6379/0"
	defaultRPCTimeout   = 5 * time.Second

	// In-process bus, messages never leave the process
	MemoryBusURL = "memory://"
)

// Setter applies not empty value to an option
type Setter func(value string) error

func String(o *string) Setter {
	return func(value string) error {
		*o = value
		return nil
	}
}

func Bool(o *bool) Setter {
	return func(value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		*o = b
		return nil
	}
}

func Int(o *int) Setter {
	return func(value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*o = n
		return nil
	}
}

func Duration(o *time.Duration) Setter {
	return func(value string) error {
		d, err := ParseDuration(value)
		if err != nil {
			return err
		}
		*o = d
		return nil
	}
}

// ParseDuration accepts Go durations ('15m', '1h30m'), days ('7d') and bare seconds ('900')
func ParseDuration(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return time.ParseDuration(value)
}

// Apply calls setters for every key getenv returns not empty value for
func Apply(setters map[string]Setter, getenv func(string) string) error {
	var errs []error

	for key, set := range setters {
		value := getenv(key)
		if value == "" {
			continue
		}
		if err := set(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

// DotEnv reads '.env' file located at working directory
// Missing file is not an error, nil map returned
func DotEnv(getwd func() (string, error)) (map[string]string, error) {
	wd, err := getwd()
	if err != nil {
		return nil, err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return envMap, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	default:
		return nil, err
	}
}

// Common options of every binary
type Common struct {
	// Environment (dev, prod)
	Environment string

	// Default logging level
	LogLevel string

	// Bus to connect to: redis url or 'memory://'
	BusURL string

	// How long bridge calls wait for reply
	RPCTimeout time.Duration
}

func NewCommon() Common {
	return Common{
		Environment: defaultEnvironment,
		LogLevel:    defaultLoggingLevel,
		BusURL:      defaultBusURL,
		RPCTimeout:  defaultRPCTimeout,
	}
}

func (c *Common) Setters() map[string]Setter {
	return map[string]Setter{
		"ENVIRONMENT": String(&c.Environment),
		"LOG_LEVEL":   String(&c.LogLevel),
		"BUS_URL":     String(&c.BusURL),
		"RPC_TIMEOUT": Duration(&c.RPCTimeout),
	}
}

func (c *Common) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.BusURL, "bus", "b", c.BusURL, "Bus url (redis://host:port/db or memory://)")
	fs.DurationVar(&c.RPCTimeout, "rpc-timeout", c.RPCTimeout, "Timeout of calls over the bus")
}

func (c Common) Logger() (logger.Logger, error) {
	return logger.New(c.Environment, c.LogLevel)
}

// OpenBus connects to the bus configured
func (c Common) OpenBus(ctx context.Context, l logger.Logger) (bus.Conn, error) {
	if c.BusURL == MemoryBusURL {
		l.Warn("In-process bus used, other services can't be reached")
		return memory.New(), nil
	}

	return redisbus.Connect(ctx, c.BusURL, l)
}
