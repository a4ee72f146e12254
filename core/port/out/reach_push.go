package out

import (
	"context"
	"fmt"
)

// PushMessage is one device-level push payload.
type PushMessage struct {
	To    []string       `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// PushSender delivers push notifications. A disabled sender is a valid value
// whose Enabled reports false.
type PushSender interface {
	Enabled() bool
	Send(ctx context.Context, msg *PushMessage) error
}

// InvalidTokensError reports device tokens the push service no longer
// accepts. Delivery to the remaining tokens succeeded.
type InvalidTokensError struct {
	Tokens []string
}

func (e *InvalidTokensError) Error() string {
	return fmt.Sprintf("%d push tokens are no longer registered", len(e.Tokens))
}
