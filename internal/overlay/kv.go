// Package overlay keeps the per-seller checkout snapshots that survive reloads: the current
// cart form, the active edit session and the one-shot "edit this order" instruction.
package overlay

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("overlay: key not found")

// Purpose names one of the snapshots a seller can have.
type Purpose string

const (
	PurposeCartForm    Purpose = "cart_form"
	PurposeEditSession Purpose = "edit_session"
	PurposePendingEdit Purpose = "pending_edit"
)

// Key is the composite {sellerID, purpose} key every snapshot is stored under.
type Key struct {
	SellerID string
	Purpose  Purpose
}

func (k Key) String() string {
	return fmt.Sprintf("order-desk:%s:%s", k.Purpose, k.SellerID)
}

// KV is a byte store keyed by Key. Writes replace the whole value.
type KV interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error
	// Take returns the value and deletes it in one step.
	Take(ctx context.Context, key Key) ([]byte, error)
}
