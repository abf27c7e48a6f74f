package cart

import (
	"context"
	"sync"

	"github.com/fjod/order-desk/domain"
)

type mockRepository struct {
	m     sync.RWMutex
	cart  *Cart
	err   error
	reads int
}

func (m *mockRepository) GetCart(context.Context, string) (*Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCartNotFound
	}
	return m.cart, nil
}

func (m *mockRepository) AddItem(_ context.Context, sellerID string, line domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		m.cart = &Cart{SellerID: sellerID}
	}
	for i := range m.cart.Lines {
		if m.cart.Lines[i].Key() == line.Key() {
			m.cart.Lines[i].Quantity += line.Quantity
			return nil
		}
	}
	m.cart.Lines = append(m.cart.Lines, line)
	return nil
}

func (m *mockRepository) UpdateItemQuantity(_ context.Context, _ string, key domain.LineKey, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart != nil {
		for i := range m.cart.Lines {
			if m.cart.Lines[i].Key() == key {
				m.cart.Lines[i].Quantity = quantity
				return nil
			}
		}
	}
	return ErrItemNotFound
}

func (m *mockRepository) RemoveItem(_ context.Context, _ string, key domain.LineKey) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		return ErrCartNotFound
	}
	for i, l := range m.cart.Lines {
		if l.Key() == key {
			m.cart.Lines = append(m.cart.Lines[:i], m.cart.Lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockRepository) DeleteCart(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.cart == nil {
		return ErrCartNotFound
	}
	m.cart = nil
	return nil
}

type mockCache struct {
	m       sync.RWMutex
	cart    *Cart
	err     error
	deletes int
}

func (m *mockCache) Get(context.Context, string) (*Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, c *Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = c
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	m.cart = nil
	return nil
}

func (m *mockCache) cached() *Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.cart
}
