// Package guard decides whether request may reach a route
package guard

import (
	"context"

	"github.com/nkiryanov/passgate/internal/logger"
)

type Policy int

const (
	Protected Policy = iota
	Public
)

func (p Policy) String() string {
	if p == Public {
		return "public"
	}
	return "protected"
}

// Routes maps ServeMux patterns to their policy
// Patterns not in the table are protected
type Routes map[string]Policy

func (r Routes) Policy(pattern string) Policy {
	p, ok := r[pattern]
	if !ok {
		return Protected
	}
	return p
}

type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNoToken      Reason = "no_token"
	ReasonTokenInvalid Reason = "token_invalid"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

var (
	Allow       = Decision{Allowed: true}
	DenyNoToken = Decision{Reason: ReasonNoToken}
	DenyInvalid = Decision{Reason: ReasonTokenInvalid}
)

// Message shown to caller when request is denied
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonNoToken:
		return "No token provided"
	case ReasonTokenInvalid:
		return "Token validation failed"
	default:
		return ""
	}
}

// Validator tells whether access token is valid
// Usually it is a remote call, so it may fail
type Validator interface {
	ValidateToken(ctx context.Context, token string) (bool, error)
}

type ValidatorFunc func(ctx context.Context, token string) (bool, error)

func (f ValidatorFunc) ValidateToken(ctx context.Context, token string) (bool, error) {
	return f(ctx, token)
}

type Guard struct {
	validator Validator
	logger    logger.Logger
}

func New(v Validator, l logger.Logger) *Guard {
	return &Guard{validator: v, logger: l.With("component", "guard")}
}

// Decide allows public routes as is
// Protected ones need the token the validator accepts; any validator failure denies
func (g *Guard) Decide(ctx context.Context, policy Policy, token string) Decision {
	if policy == Public {
		return Allow
	}

	if token == "" {
		return DenyNoToken
	}

	valid, err := g.validator.ValidateToken(ctx, token)
	if err != nil {
		g.logger.Warn("Token validation failed", "error", err)
		return DenyInvalid
	}

	if !valid {
		return DenyInvalid
	}

	return Allow
}
