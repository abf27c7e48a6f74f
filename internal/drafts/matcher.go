// Package drafts finds an unfinished draft order of the same buyer so the desk can offer
// to resume it instead of creating a duplicate.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/order-desk/internal/phone"
)

var ErrLookupFailed = errors.New("drafts: lookup failed")

// Store runs one exact-match query: the newest draft of seller whose buyer phone equals form.
type Store interface {
	FindDraftIDByPhone(ctx context.Context, sellerID, form string) (id string, found bool, err error)
}

type Matcher struct {
	store Store
}

func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// Find tries each canonical form of rawPhone in order and stops at the first hit.
// A miss is ("", nil).
func (m *Matcher) Find(ctx context.Context, sellerID, rawPhone string) (string, error) {
	if strings.TrimSpace(rawPhone) == "" {
		return "", nil
	}
	id, _, err := phone.FirstMatch(rawPhone, func(form string) (string, bool, error) {
		return m.store.FindDraftIDByPhone(ctx, sellerID, form)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return id, nil
}
