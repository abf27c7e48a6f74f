package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/fjod/order-desk/internal/cart"
	"github.com/fjod/order-desk/internal/catalog"
	"github.com/fjod/order-desk/internal/invoice"
	"github.com/fjod/order-desk/internal/overlay"
	"github.com/fjod/order-desk/internal/repository"
	"github.com/fjod/order-desk/internal/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// MockOrders implements OrderStore in memory
type MockOrders struct {
	mu             sync.Mutex
	orders         map[string]*domain.Order
	seq            int
	issued         []string
	events         []string
	paymentMethods map[string]*domain.PaymentMethod
	InsertErr      error
	UpdateErr      error
	Inserts        int
	Updates        int
}

func newMockOrders() *MockOrders {
	return &MockOrders{
		orders: map[string]*domain.Order{},
		paymentMethods: map[string]*domain.PaymentMethod{
			"pm-bank": {ID: "pm-bank", SellerID: "seller-1", Name: "Bank Transfer", Active: true},
			"pm-old":  {ID: "pm-old", SellerID: "seller-1", Name: "Old Wallet", Active: false},
		},
	}
}

func (m *MockOrders) NextOrderNumber(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	n := repository.FormatOrderNumber(2026, int64(m.seq))
	m.issued = append(m.issued, n)
	return n, nil
}

func (m *MockOrders) InsertOrder(_ context.Context, o *domain.Order, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.Inserts++
	if o.ID == "" {
		o.ID = fmt.Sprintf("order-%d", len(m.orders)+1)
	}
	cp := *o
	m.orders[o.ID] = &cp
	m.events = append(m.events, eventType)
	return nil
}

func (m *MockOrders) UpdateOrder(_ context.Context, o *domain.Order, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	stored, ok := m.orders[o.ID]
	if !ok || stored.SellerID != o.SellerID {
		return repository.ErrOrderNotFound
	}
	m.Updates++
	o.OrderNumber = stored.OrderNumber
	o.CreatedAt = stored.CreatedAt
	cp := *o
	m.orders[o.ID] = &cp
	m.events = append(m.events, eventType)
	return nil
}

func (m *MockOrders) GetOrder(_ context.Context, sellerID, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.SellerID != sellerID {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrders) GetPaymentMethod(_ context.Context, sellerID, id string) (*domain.PaymentMethod, error) {
	pm, ok := m.paymentMethods[id]
	if !ok || pm.SellerID != sellerID {
		return nil, repository.ErrPaymentMethodNotFound
	}
	return pm, nil
}

func (m *MockOrders) ListPaymentMethods(_ context.Context, sellerID string) ([]domain.PaymentMethod, error) {
	var out []domain.PaymentMethod
	for _, pm := range m.paymentMethods {
		if pm.SellerID == sellerID && pm.Active {
			out = append(out, *pm)
		}
	}
	return out, nil
}

func (m *MockOrders) put(o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

func (m *MockOrders) stored(id string) *domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

// MockCart implements CartStore in memory
type MockCart struct {
	lines      map[string][]domain.CartLine
	ClearCalls int
	Err        error
}

func newMockCart() *MockCart {
	return &MockCart{lines: map[string][]domain.CartLine{}}
}

func (m *MockCart) Lines(_ context.Context, sellerID string) ([]domain.CartLine, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return domain.CloneLines(m.lines[sellerID]), nil
}

func (m *MockCart) AddItem(_ context.Context, sellerID string, line domain.CartLine) error {
	if m.Err != nil {
		return m.Err
	}
	m.lines[sellerID] = overlay.MergeLine(m.lines[sellerID], line)
	return nil
}

func (m *MockCart) UpdateQuantity(ctx context.Context, sellerID string, key domain.LineKey, quantity int) error {
	if quantity <= 0 {
		return m.RemoveItem(ctx, sellerID, key)
	}
	for i, l := range m.lines[sellerID] {
		if l.Key() == key {
			m.lines[sellerID][i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (m *MockCart) RemoveItem(_ context.Context, sellerID string, key domain.LineKey) error {
	lines := m.lines[sellerID]
	for i, l := range lines {
		if l.Key() == key {
			m.lines[sellerID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (m *MockCart) ClearCart(_ context.Context, sellerID string) error {
	m.ClearCalls++
	delete(m.lines, sellerID)
	return nil
}

type quoteCall struct {
	destination string
	itemCount   int
	carrier     string
}

// MockResolver implements ShippingResolver. Enabled sets come from a real resolver over the
// catalog; quotes are canned and the cheapest matching one is the default.
type MockResolver struct {
	Quotes  []domain.Quote
	Err     error
	Calls   []quoteCall
	enabled *shipping.Resolver
}

func newMockResolver(t *testing.T, cat shipping.Catalog, quotes []domain.Quote) *MockResolver {
	t.Helper()
	r, err := shipping.NewResolver(shipping.ResolverDeps{Catalog: cat, Quoter: nopQuoter{}})
	require.NoError(t, err)
	return &MockResolver{Quotes: quotes, enabled: r}
}

type nopQuoter struct{}

func (nopQuoter) Quote(context.Context, shipping.QuoteRequest) ([]domain.Quote, error) {
	return nil, nil
}

func (m *MockResolver) EnabledCarriers(ctx context.Context, sellerID string) ([]domain.Carrier, error) {
	return m.enabled.EnabledCarriers(ctx, sellerID)
}

func (m *MockResolver) EnabledServices(ctx context.Context, sellerID, carrierCode string) ([]domain.CarrierService, error) {
	return m.enabled.EnabledServices(ctx, sellerID, carrierCode)
}

func (m *MockResolver) Quote(_ context.Context, _ string, destination string, itemCount int, carrier string) (shipping.QuoteResult, error) {
	m.Calls = append(m.Calls, quoteCall{destination: destination, itemCount: itemCount, carrier: carrier})
	if destination == "" {
		return shipping.QuoteResult{}, nil
	}
	if m.Err != nil {
		return shipping.QuoteResult{}, fmt.Errorf("%w: %v", shipping.ErrQuoteUnavailable, m.Err)
	}
	var quotes []domain.Quote
	for _, q := range m.Quotes {
		if carrier == "" || q.CarrierCode == carrier {
			quotes = append(quotes, q)
		}
	}
	if len(quotes) == 0 {
		return shipping.QuoteResult{}, nil
	}
	return shipping.QuoteResult{Quotes: quotes, Default: shipping.Cheapest(quotes)}, nil
}

// MockCatalog implements Catalog
type MockCatalog struct {
	carriers     []domain.Carrier
	services     map[string][]domain.CarrierService
	carrierPrefs map[string]shipping.Preference
	servicePrefs map[string]shipping.Preference
}

func newMockCatalog() *MockCatalog {
	return &MockCatalog{
		carriers: []domain.Carrier{
			{Code: "jne", Name: "JNE", Active: true},
			{Code: "sicepat", Name: "SiCepat", Active: true},
			{Code: "pos", Name: "POS Indonesia", Active: false},
		},
		services: map[string][]domain.CarrierService{
			"jne": {
				{CarrierCode: "jne", Code: "REG", Name: "Reguler", Active: true},
				{CarrierCode: "jne", Code: "YES", Name: "Yakin Esok Sampai", Active: true},
			},
			"sicepat": {{CarrierCode: "sicepat", Code: "BEST", Name: "Besok Sampai Tujuan", Active: true}},
		},
		carrierPrefs: map[string]shipping.Preference{},
		servicePrefs: map[string]shipping.Preference{},
	}
}

func (m *MockCatalog) ActiveCarriers(context.Context) ([]domain.Carrier, error) {
	return m.carriers, nil
}

func (m *MockCatalog) Carrier(_ context.Context, code string) (domain.Carrier, error) {
	for _, c := range m.carriers {
		if c.Code == code {
			return c, nil
		}
	}
	return domain.Carrier{}, catalog.ErrCarrierNotFound
}

func (m *MockCatalog) CarrierServices(_ context.Context, code string) ([]domain.CarrierService, error) {
	return m.services[code], nil
}

func (m *MockCatalog) CarrierPreferences(context.Context, string) (map[string]shipping.Preference, error) {
	return m.carrierPrefs, nil
}

func (m *MockCatalog) ServicePreferences(_ context.Context, _ string, carrier string) (map[string]shipping.Preference, error) {
	out := map[string]shipping.Preference{}
	for k, v := range m.servicePrefs {
		if c, svc, ok := strings.Cut(k, "/"); ok && c == carrier {
			out[svc] = v
		}
	}
	return out, nil
}

func (m *MockCatalog) SetCarrierPreference(ctx context.Context, _ string, code string, enabled bool) error {
	if _, err := m.Carrier(ctx, code); err != nil {
		return err
	}
	m.carrierPrefs[code] = shipping.PreferenceOf(enabled)
	return nil
}

func (m *MockCatalog) SetServicePreference(_ context.Context, _ string, carrier, service string, enabled bool) error {
	m.servicePrefs[carrier+"/"+service] = shipping.PreferenceOf(enabled)
	return nil
}

// MockDrafts implements DraftFinder
type MockDrafts struct {
	ByPhone map[string]string
	Err     error
	Calls   int
}

func (m *MockDrafts) Find(_ context.Context, _ string, rawPhone string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.ByPhone[rawPhone], nil
}

// MockLocations implements LocationResolver
type MockLocations struct {
	ByText    map[string]*domain.Location
	Districts map[string]*domain.Location
	Err       error
}

func (m *MockLocations) Resolve(_ context.Context, text string) (*domain.Location, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.ByText[text], nil
}

func (m *MockLocations) ByDistrict(_ context.Context, id string) (*domain.Location, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Districts[id], nil
}

// MockRenderer implements InvoiceRenderer
type MockRenderer struct {
	Err       error
	Snapshots []domain.InvoiceSnapshot
}

func (m *MockRenderer) Render(_ context.Context, snap domain.InvoiceSnapshot) (invoice.Rendered, error) {
	m.Snapshots = append(m.Snapshots, snap)
	if m.Err != nil {
		return invoice.Rendered{}, m.Err
	}
	return invoice.Rendered{Reference: "inv-" + snap.OrderNumber, URL: "https://invoices.test/" + snap.OrderNumber}, nil
}

// MockObserver counts outcomes
type MockObserver struct {
	Checkouts     map[string]int
	Drafts        map[string]int
	QuoteFailures int
	RenderFails   int
}

func newMockObserver() *MockObserver {
	return &MockObserver{Checkouts: map[string]int{}, Drafts: map[string]int{}}
}

func (m *MockObserver) CheckoutFinished(result string) { m.Checkouts[result]++ }
func (m *MockObserver) DraftSaved(result string)       { m.Drafts[result]++ }
func (m *MockObserver) QuoteFailed()                   { m.QuoteFailures++ }
func (m *MockObserver) InvoiceFailed()                 { m.RenderFails++ }

type MockPhones struct {
	Phone string
	Err   error
}

func (m *MockPhones) DetectPhone(context.Context, string) (string, error) {
	return m.Phone, m.Err
}

const seller = "seller-1"

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	desk      *Desk
	orders    *MockOrders
	cart      *MockCart
	sessions  *overlay.Store
	resolver  *MockResolver
	catalog   *MockCatalog
	drafts    *MockDrafts
	locations *MockLocations
	renderer  *MockRenderer
	observer  *MockObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := overlay.NewMemoryKV(0)
	t.Cleanup(func() { _ = kv.Close() })

	f := &fixture{
		orders:   newMockOrders(),
		cart:     newMockCart(),
		sessions: overlay.NewStore(kv),
		catalog:  newMockCatalog(),
		drafts:   &MockDrafts{ByPhone: map[string]string{}},
		locations: &MockLocations{
			ByText: map[string]*domain.Location{
				"Menteng, Jakarta Pusat": {CityName: "Jakarta Pusat", DistrictID: "3171", DistrictName: "Menteng"},
			},
			Districts: map[string]*domain.Location{
				"3273": {ProvinceName: "Jawa Barat", CityName: "Bandung", DistrictID: "3273", DistrictName: "Coblong"},
			},
		},
		renderer: &MockRenderer{},
		observer: newMockObserver(),
	}
	f.resolver = newMockResolver(t, f.catalog, []domain.Quote{
		{CarrierCode: "jne", ServiceName: "REG", Cost: dec(18_000)},
		{CarrierCode: "jne", ServiceName: "YES", Cost: dec(30_000)},
		{CarrierCode: "sicepat", ServiceName: "BEST", Cost: dec(15_000)},
	})

	desk, err := NewDesk(Deps{
		Orders:    f.orders,
		Cart:      f.cart,
		Sessions:  f.sessions,
		Shipping:  f.resolver,
		Catalog:   f.catalog,
		Drafts:    f.drafts,
		Locations: f.locations,
		Invoices:  f.renderer,
		Observer:  f.observer,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	f.desk = desk
	return f
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func cartLine(id string, price int64, qty int) domain.CartLine {
	return domain.CartLine{ProductID: id, ProductName: "Product " + id, Quantity: qty, UnitPrice: dec(price)}
}

// dispatchAll applies events in order and fails the test on the first error.
func (f *fixture) dispatchAll(t *testing.T, events ...Event) domain.Session {
	t.Helper()
	var s domain.Session
	var err error
	for _, ev := range events {
		s, err = f.desk.Dispatch(context.Background(), seller, ev)
		require.NoError(t, err, "event %T", ev)
	}
	return s
}

// fillCheckoutForm sets every field checkout requires on the current session.
func (f *fixture) fillCheckoutForm(t *testing.T) domain.Session {
	t.Helper()
	return f.dispatchAll(t,
		PhoneChanged{Phone: "0812-3456-7890"},
		BuyerNameChanged{Name: "Siti"},
		AddressChanged{Address: "Jl. Cikini Raya 12"},
		CityDistrictChanged{Text: "Menteng, Jakarta Pusat"},
		PaymentMethodSelected{ID: "pm-bank"},
		CarrierSelected{Code: "jne"},
		ServiceSelected{Code: "REG"},
	)
}
