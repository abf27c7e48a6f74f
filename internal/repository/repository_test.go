package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations(creds))
	return repo
}

func newTestOrder(t *testing.T, repo *Repository, status domain.OrderStatus, rawPhone string) *domain.Order {
	t.Helper()
	number, err := repo.NextOrderNumber(context.Background())
	require.NoError(t, err)

	return &domain.Order{
		SellerID:    "seller-1",
		OrderNumber: number,
		Status:      status,
		Buyer: domain.BuyerInfo{
			Phone:        rawPhone,
			Name:         "Sari",
			Address:      "Jl. Dago 10",
			CityDistrict: "Coblong, Kota Bandung",
		},
		Items: []domain.LineItem{
			{ProductID: "p-1", ProductName: "Batik", Quantity: 2, UnitPrice: decimal.NewFromInt(50000), LineTotal: decimal.NewFromInt(100000)},
		},
		Shipping:        domain.ShippingSelection{Carrier: "jne", Service: "REG", ManualFee: decimal.NewFromInt(15000)},
		Discount:        domain.DiscountSpec{Kind: domain.DiscountPercentage, Value: decimal.NewFromInt(10)},
		PaymentMethodID: "pm-1",
		Subtotal:        decimal.NewFromInt(100000),
		DiscountAmount:  decimal.NewFromInt(10000),
		ShippingFee:     decimal.NewFromInt(15000),
		TotalAmount:     decimal.NewFromInt(55000),
		Partial:         domain.PartialPayment{Amount: decimal.NewFromInt(50000), Remaining: decimal.NewFromInt(55000)},
	}
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD-2026-000042", FormatOrderNumber(2026, 42))
}

func TestNextOrderNumber_Distinct(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		n, err := repo.NextOrderNumber(ctx)
		require.NoError(t, err)
		assert.False(t, seen[n], n)
		seen[n] = true
	}
}

func TestInsertOrder_RoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	o := newTestOrder(t, repo, domain.OrderStatusNew, "081234567890")
	require.NoError(t, repo.InsertOrder(ctx, o, EventCheckedOut))
	_, err := uuid.Parse(o.ID)
	require.NoError(t, err)

	got, err := repo.GetOrder(ctx, "seller-1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.Equal(t, domain.OrderStatusNew, got.Status)
	assert.Equal(t, "Sari", got.Buyer.Name)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(50000)))
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(55000)))
	assert.True(t, got.Partial.Amount.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, domain.DiscountPercentage, got.Discount.Kind)
	assert.Equal(t, "REG", got.Shipping.Service)

	_, err = repo.GetOrder(ctx, "seller-2", o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestInsertOrder_DuplicateNumber(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := newTestOrder(t, repo, domain.OrderStatusNew, "081234567890")
	require.NoError(t, repo.InsertOrder(ctx, first, EventCheckedOut))

	second := newTestOrder(t, repo, domain.OrderStatusNew, "081234567890")
	second.OrderNumber = first.OrderNumber
	assert.ErrorIs(t, repo.InsertOrder(ctx, second, EventCheckedOut), ErrDuplicateOrderNumber)
}

func TestUpdateOrder_KeepsOrderNumber(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	o := newTestOrder(t, repo, domain.OrderStatusDraft, "081234567890")
	require.NoError(t, repo.InsertOrder(ctx, o, EventDraftSaved))
	original := o.OrderNumber

	o.OrderNumber = "ORD-0000-999999"
	o.Status = domain.OrderStatusNew
	o.Notes = "gift wrap"
	require.NoError(t, repo.UpdateOrder(ctx, o, EventCheckedOut))
	assert.Equal(t, original, o.OrderNumber)

	got, err := repo.GetOrder(ctx, "seller-1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, original, got.OrderNumber)
	assert.Equal(t, domain.OrderStatusNew, got.Status)
	assert.Equal(t, "gift wrap", got.Notes)
}

func TestUpdateOrder_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	o := newTestOrder(t, repo, domain.OrderStatusNew, "081234567890")
	o.ID = uuid.NewString()
	assert.ErrorIs(t, repo.UpdateOrder(context.Background(), o, EventOrderUpdated), ErrOrderNotFound)
}

func TestFindDraftIDByPhone(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	older := newTestOrder(t, repo, domain.OrderStatusDraft, "081234567890")
	require.NoError(t, repo.InsertOrder(ctx, older, EventDraftSaved))
	time.Sleep(10 * time.Millisecond)
	newer := newTestOrder(t, repo, domain.OrderStatusDraft, "+62 812 3456 7890")
	require.NoError(t, repo.InsertOrder(ctx, newer, EventDraftSaved))
	placed := newTestOrder(t, repo, domain.OrderStatusNew, "081299999999")
	require.NoError(t, repo.InsertOrder(ctx, placed, EventCheckedOut))

	id, found, err := repo.FindDraftIDByPhone(ctx, "seller-1", "6281234567890")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, newer.ID, id)

	_, found, err = repo.FindDraftIDByPhone(ctx, "seller-1", "6281299999999")
	require.NoError(t, err)
	assert.False(t, found, "placed orders are not drafts")

	_, found, err = repo.FindDraftIDByPhone(ctx, "seller-2", "6281234567890")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListOrdersByStatus(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertOrder(ctx, newTestOrder(t, repo, domain.OrderStatusDraft, "0811"), EventDraftSaved))
	require.NoError(t, repo.InsertOrder(ctx, newTestOrder(t, repo, domain.OrderStatusNew, "0812"), EventCheckedOut))
	require.NoError(t, repo.InsertOrder(ctx, newTestOrder(t, repo, domain.OrderStatusShipped, "0813"), EventCheckedOut))

	orders, err := repo.ListOrdersByStatus(ctx, "seller-1", []domain.OrderStatus{domain.OrderStatusDraft, domain.OrderStatusNew}, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestOutbox_WrittenWithOrder(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	o := newTestOrder(t, repo, domain.OrderStatusNew, "081234567890")
	require.NoError(t, repo.InsertOrder(ctx, o, EventCheckedOut))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, o.ID, events[0].AggregateID)
	assert.Equal(t, EventCheckedOut, events[0].EventType)

	var payload OrderEventPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, o.OrderNumber, payload.OrderNumber)
	assert.Equal(t, "6281234567890", payload.BuyerPhone)
	assert.Equal(t, 2, payload.ItemCount)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestBuyerUpsertedOnlyForPlacedOrders(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertOrder(ctx, newTestOrder(t, repo, domain.OrderStatusDraft, "081234567890"), EventDraftSaved))

	var n int
	require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM buyers`).Scan(&n))
	assert.Zero(t, n)

	placed := newTestOrder(t, repo, domain.OrderStatusNew, "081234567890")
	require.NoError(t, repo.InsertOrder(ctx, placed, EventCheckedOut))
	placed.Buyer.Name = "Sari W."
	require.NoError(t, repo.UpdateOrder(ctx, placed, EventOrderUpdated))

	var name string
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT name FROM buyers WHERE seller_id = $1 AND phone = $2`, "seller-1", "6281234567890").Scan(&name))
	assert.Equal(t, "Sari W.", name)
}

func TestPaymentMethods(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	bca := &domain.PaymentMethod{SellerID: "seller-1", Name: "BCA Transfer", Active: true}
	require.NoError(t, repo.CreatePaymentMethod(ctx, bca))
	require.NoError(t, repo.CreatePaymentMethod(ctx, &domain.PaymentMethod{SellerID: "seller-1", Name: "COD", Active: false}))

	got, err := repo.GetPaymentMethod(ctx, "seller-1", bca.ID)
	require.NoError(t, err)
	assert.Equal(t, "BCA Transfer", got.Name)

	_, err = repo.GetPaymentMethod(ctx, "seller-2", bca.ID)
	assert.ErrorIs(t, err, ErrPaymentMethodNotFound)

	methods, err := repo.ListPaymentMethods(ctx, "seller-1")
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, bca.ID, methods[0].ID)
}
