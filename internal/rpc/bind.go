package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/validate"
)

// Bind decodes payload into T and validates it using struct tags
// Any failure is apperrors.ErrBadRequest with message naming the fields
func Bind[T any](payload json.RawMessage) (T, error) {
	var value T

	if err := json.Unmarshal(payload, &value); err != nil {
		return value, apperrors.BadRequest("Failed to parse payload").WithCause(err)
	}

	err := validate.Struct(value)
	if err == nil {
		return value, nil
	}

	fields := validate.Fields(err)
	if fields == nil {
		return value, apperrors.Internal(err)
	}

	parts := make([]string, 0, len(fields))
	for name, message := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", name, message))
	}
	sort.Strings(parts)

	return value, apperrors.BadRequest("Request validation failed: " + strings.Join(parts, "; ")).WithCause(err)
}

// Typed wraps fn into HandlerFunc that binds payload into T first
func Typed[T any](fn func(ctx context.Context, req T) (any, error)) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		req, err := Bind[T](payload)
		if err != nil {
			return nil, err
		}
		return fn(ctx, req)
	}
}
