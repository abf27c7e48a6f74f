package drafts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	drafts map[string]string // phone form -> draft id
	err    error
	calls  []string
}

func (m *mockStore) FindDraftIDByPhone(_ context.Context, sellerID, form string) (string, bool, error) {
	m.calls = append(m.calls, form)
	if m.err != nil {
		return "", false, m.err
	}
	id, ok := m.drafts[sellerID+"/"+form]
	return id, ok, nil
}

func TestFind_MatchesStoredInternationalForm(t *testing.T) {
	store := &mockStore{drafts: map[string]string{"seller-1/6281234567890": "draft-7"}}
	m := NewMatcher(store)

	id, err := m.Find(context.Background(), "seller-1", "081234567890")
	require.NoError(t, err)
	assert.Equal(t, "draft-7", id)
	assert.Equal(t, []string{"6281234567890"}, store.calls)
}

func TestFind_StopsAtFirstHit(t *testing.T) {
	store := &mockStore{drafts: map[string]string{
		"seller-1/081234567890":  "draft-local",
		"seller-1/+6281234567890": "draft-plus",
	}}
	m := NewMatcher(store)

	id, err := m.Find(context.Background(), "seller-1", "+62 812-3456-7890")
	require.NoError(t, err)
	assert.Equal(t, "draft-local", id)
	assert.Equal(t, []string{"6281234567890", "081234567890"}, store.calls)
}

func TestFind_AllMiss(t *testing.T) {
	store := &mockStore{drafts: map[string]string{"seller-2/6281234567890": "other-seller"}}
	m := NewMatcher(store)

	id, err := m.Find(context.Background(), "seller-1", "081234567890")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, []string{"6281234567890", "081234567890", "+6281234567890"}, store.calls)
}

func TestFind_EmptyPhoneSkipsStore(t *testing.T) {
	store := &mockStore{}
	id, err := NewMatcher(store).Find(context.Background(), "seller-1", "  ")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, store.calls)
}

func TestFind_StoreError(t *testing.T) {
	store := &mockStore{err: errors.New("connection reset")}
	_, err := NewMatcher(store).Find(context.Background(), "seller-1", "081234567890")
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Len(t, store.calls, 1)
}
