package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/order-desk/domain"
)

// PendingEdit is the one-shot instruction to open a specific order for editing on next load.
type PendingEdit struct {
	OrderID     string    `json:"order_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Store reads and writes typed snapshots on top of a KV. Every write is a full replace.
type Store struct {
	kv  KV
	now func() time.Time
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Begin starts an edit session with its initial snapshot, replacing any previous one.
func (s *Store) Begin(ctx context.Context, sellerID string, snap domain.SessionSnapshot) error {
	return s.Write(ctx, sellerID, snap)
}

// Read returns the active edit session, or nil when there is none.
func (s *Store) Read(ctx context.Context, sellerID string) (*domain.SessionSnapshot, error) {
	return readJSON[domain.SessionSnapshot](ctx, s.kv, editKey(sellerID))
}

func (s *Store) Write(ctx context.Context, sellerID string, snap domain.SessionSnapshot) error {
	snap.SellerID = sellerID
	snap.UpdatedAt = s.now().UTC()
	return writeJSON(ctx, s.kv, editKey(sellerID), snap)
}

// MergeAddedLine folds a line added from another view into the active edit session.
// It reports false, without writing, when no edit session exists.
func (s *Store) MergeAddedLine(ctx context.Context, sellerID string, line domain.CartLine) (bool, error) {
	snap, err := s.Read(ctx, sellerID)
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, nil
	}
	snap.Form.Lines = MergeLine(snap.Form.Lines, line)
	if err := s.Write(ctx, sellerID, *snap); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Clear(ctx context.Context, sellerID string) error {
	return s.kv.Delete(ctx, editKey(sellerID))
}

// ReadCartForm returns the saved form of a fresh cart, or nil.
func (s *Store) ReadCartForm(ctx context.Context, sellerID string) (*domain.SessionSnapshot, error) {
	return readJSON[domain.SessionSnapshot](ctx, s.kv, Key{SellerID: sellerID, Purpose: PurposeCartForm})
}

// WriteCartForm saves a fresh cart's form. Lines live in the cart store, so they are not kept here.
func (s *Store) WriteCartForm(ctx context.Context, sellerID string, snap domain.SessionSnapshot) error {
	snap.SellerID = sellerID
	snap.Kind = domain.TargetFreshCart
	snap.Form.Lines = nil
	snap.UpdatedAt = s.now().UTC()
	return writeJSON(ctx, s.kv, Key{SellerID: sellerID, Purpose: PurposeCartForm}, snap)
}

func (s *Store) ClearCartForm(ctx context.Context, sellerID string) error {
	return s.kv.Delete(ctx, Key{SellerID: sellerID, Purpose: PurposeCartForm})
}

func (s *Store) SetPendingEdit(ctx context.Context, sellerID, orderID string) error {
	return writeJSON(ctx, s.kv, Key{SellerID: sellerID, Purpose: PurposePendingEdit},
		PendingEdit{OrderID: orderID, RequestedAt: s.now().UTC()})
}

// TakePendingEdit consumes the pending instruction. A second call returns nil.
func (s *Store) TakePendingEdit(ctx context.Context, sellerID string) (*PendingEdit, error) {
	data, err := s.kv.Take(ctx, Key{SellerID: sellerID, Purpose: PurposePendingEdit})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pe PendingEdit
	if err := json.Unmarshal(data, &pe); err != nil {
		return nil, fmt.Errorf("unmarshal pending edit failed: %w", err)
	}
	return &pe, nil
}

// MergeLine adds line to lines: a line with the same product and variant has its quantity
// increased, anything else is appended. lines is not modified.
func MergeLine(lines []domain.CartLine, line domain.CartLine) []domain.CartLine {
	out := domain.CloneLines(lines)
	for i := range out {
		if out[i].Key() == line.Key() {
			out[i].Quantity += line.Quantity
			return out
		}
	}
	return append(out, line)
}

func editKey(sellerID string) Key {
	return Key{SellerID: sellerID, Purpose: PurposeEditSession}
}

func readJSON[T any](ctx context.Context, kv KV, key Key) (*T, error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s failed: %w", key.Purpose, err)
	}
	return &v, nil
}

func writeJSON(ctx context.Context, kv KV, key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key.Purpose, err)
	}
	return kv.Set(ctx, key, data)
}
