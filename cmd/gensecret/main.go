package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

const (
	defaultSecretLen = 32
	minSecretLen     = 16
)

// Print random secret suitable for JWT_SECRET
func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	fs.SetOutput(stdout)

	size := fs.IntP("bytes", "n", defaultSecretLen, "Count of random bytes")
	encoding := fs.StringP("encoding", "f", "hex", "Output encoding (hex, base64)")
	asEnv := fs.Bool("env", false, "Print as JWT_SECRET=<secret> line ready for .env file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *size < minSecretLen {
		return fmt.Errorf("secret must be at least %d bytes", minSecretLen)
	}

	b := make([]byte, *size)
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("error while generating secret key: %w", err)
	}

	var secret string
	switch *encoding {
	case "hex":
		secret = hex.EncodeToString(b)
	case "base64":
		secret = base64.RawURLEncoding.EncodeToString(b)
	default:
		return errors.New("unknown encoding, use hex or base64")
	}

	if *asEnv {
		secret = "JWT_SECRET=" + secret
	}

	_, err := fmt.Fprintln(stdout, secret)
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
