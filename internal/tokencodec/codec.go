package tokencodec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultSigningMethod = "HS256"
	defaultIssuer        = "passgate"

	// MinTTL is the shortest lifetime 'exp' claim can express
	MinTTL = time.Second
)

// Kind of token stored in the 'typ' claim
// Access and refresh tokens are signed with the same key, the kind keeps them apart
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalid is the only verification outcome besides success
	ErrInvalid = errors.New("token is invalid")

	ErrSigning = errors.New("token signing failed")
)

// Claims the codec signs and restores
type Claims struct {
	Subject  string
	Username string
	Kind     Kind

	// Filled on Verify only
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Kind     Kind   `json:"typ"`
}

// Codec config with sensible defaults
type Config struct {
	// Secret key to sign tokens
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm, HS256 if not set
	Alg string

	// Token issuer ('iss' claim), checked on verification
	Issuer string
}

type Codec struct {
	key    []byte
	alg    jwt.SigningMethod
	issuer string
	now    func() time.Time
}

type Option func(*Codec)

// WithClock replaces time source for signing and verification
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func New(cfg Config, opts ...Option) (*Codec, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("signing method %q is not supported, use HMAC one", cfg.Alg)
	}

	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}

	c := &Codec{
		key:    []byte(cfg.SecretKey),
		alg:    alg,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Sign claims so the token expires after ttl
// Expiry is rounded up to whole seconds, returned expiresAt is the signed one
// Token signed with ttl <= 0 is already expired
func (c *Codec) Sign(claims Claims, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return "", time.Time{}, fmt.Errorf("%w: unknown token kind %q", ErrSigning, claims.Kind)
	}

	now := c.now()
	exp := jwt.NewNumericDate(expiry(now, ttl))

	t := jwt.NewWithClaims(c.alg, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
		Username: claims.Username,
		Kind:     claims.Kind,
	})

	token, err = t.SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	return token, exp.Time, nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	at := now.Add(ttl)
	whole := at.Truncate(time.Second)
	if ttl <= 0 || whole.Equal(at) {
		return whole
	}
	return whole.Add(time.Second)
}

// Verify token of the expected kind
// Whatever is wrong with the token the error is ErrInvalid
func (c *Codec) Verify(token string, kind Kind) (Claims, error) {
	parsed := &jwtClaims{}

	_, err := jwt.ParseWithClaims(
		token,
		parsed,
		func(t *jwt.Token) (any, error) {
			return c.key, nil
		},
		jwt.WithValidMethods([]string{c.alg.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, ErrInvalid
	}

	if parsed.Kind != kind || parsed.Subject == "" {
		return Claims{}, ErrInvalid
	}

	claims := Claims{
		Subject:   parsed.Subject,
		Username:  parsed.Username,
		Kind:      parsed.Kind,
		ID:        parsed.ID,
		ExpiresAt: parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}

	return claims, nil
}

// Subject reads 'sub' without checking the signature
// Use it only for tokens that were verified already
func Subject(token string) (string, error) {
	parsed := &jwtClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, parsed)
	if err != nil || parsed.Subject == "" {
		return "", ErrInvalid
	}

	return parsed.Subject, nil
}
