package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nkiryanov/passgate/internal/apperrors"
)

// Caller is anything that can make request-reply call
type Caller interface {
	Call(ctx context.Context, topic string, payload any, timeout time.Duration) (json.RawMessage, error)
}

// Call makes request-reply call and decodes reply into T
func Call[T any](ctx context.Context, c Caller, topic string, payload any, timeout time.Duration) (T, error) {
	var value T

	reply, err := c.Call(ctx, topic, payload, timeout)
	if err != nil {
		return value, err
	}

	if err := json.Unmarshal(reply, &value); err != nil {
		return value, apperrors.Internal(fmt.Errorf("reply of %q decoding error: %w", topic, err))
	}

	return value, nil
}
