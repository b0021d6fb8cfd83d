package main

import (
	"github.com/spf13/pflag"

	"github.com/nkiryanov/passgate/internal/config"
	"github.com/nkiryanov/passgate/internal/handlers"
)

const defaultListenAddr = "localhost:8000"

type Config struct {
	config.Common

	// Address on which the gateway will be run
	ListenAddr string

	// Cookies tokens are kept in
	AccessCookieName  string
	RefreshCookieName string

	// Send cookies over https only
	CookieSecure bool
}

func NewConfig() *Config {
	return &Config{
		Common:            config.NewCommon(),
		ListenAddr:        defaultListenAddr,
		AccessCookieName:  handlers.DefaultAccessCookieName,
		RefreshCookieName: handlers.DefaultRefreshCookieName,
		CookieSecure:      true,
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
	setters["APP_ADDRESS"] = config.String(&c.ListenAddr)
	setters["COOKIE_ACCESS_TOKEN_NAME"] = config.String(&c.AccessCookieName)
	setters["COOKIE_REFRESH_TOKEN_NAME"] = config.String(&c.RefreshCookieName)
	setters["COOKIE_SECURE"] = config.Bool(&c.CookieSecure)

	return config.Apply(setters, getenv)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("gateway", pflag.ContinueOnError)

	c.AddFlags(fs)
	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVar(&c.AccessCookieName, "access-cookie", c.AccessCookieName, "Name of cookie with access token")
	fs.StringVar(&c.RefreshCookieName, "refresh-cookie", c.RefreshCookieName, "Name of cookie with refresh token")
	fs.BoolVar(&c.CookieSecure, "cookie-secure", c.CookieSecure, "Send cookies over https only")

	return fs.Parse(args)
}
