// Package keyservice is the client side of the key-management RPC API.
package keyservice

import (
	"context"
	"fmt"
	"time"
)

// Key is one API key as listed by the key service. Only the first few
// characters of the secret are ever known to the dashboard.
type Key struct {
	ID                      string     `json:"id"`
	Start                   string     `json:"start"`
	CreatedAt               time.Time  `json:"createdAt"`
	Expires                 *time.Time `json:"expires"`
	OwnerID                 *string    `json:"ownerId"`
	Name                    *string    `json:"name"`
	RatelimitType           *string    `json:"ratelimitType"`
	RatelimitLimit          *int64     `json:"ratelimitLimit"`
	RatelimitRefillRate     *int64     `json:"ratelimitRefillRate"`
	RatelimitRefillInterval *int64     `json:"ratelimitRefillInterval"`
	RemainingRequests       *int64     `json:"remainingRequests"`
}

type Service interface {
	ListKeys(ctx context.Context) ([]Key, error)
	// DeleteKeys revokes every key in keyIDs. Revoking a key that is already
	// gone is a success on the server side.
	DeleteKeys(ctx context.Context, keyIDs []string) error
}

// RPCError is the error body of a failed procedure call.
type RPCError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("key service returned status %d", e.HTTPStatus)
}

func (e *RPCError) ServerMessage() string { return e.Message }
