package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/order-desk/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SellerID  string             `bson:"seller_id"`
	Items     []lineDocument     `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type lineDocument struct {
	ProductID   string               `bson:"product_id"`
	VariantID   string               `bson:"variant_id"`
	Quantity    int                  `bson:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
	Note        string               `bson:"note,omitempty"`
	ProductName string               `bson:"product_name,omitempty"`
	ImageURL    string               `bson:"image_url,omitempty"`
	AddedAt     time.Time            `bson:"added_at"`
}

func toLineDocument(l domain.CartLine) (lineDocument, error) {
	price, err := primitive.ParseDecimal128(l.UnitPrice.String())
	if err != nil {
		return lineDocument{}, fmt.Errorf("invalid unit price %s: %w", l.UnitPrice, err)
	}
	return lineDocument{
		ProductID:   l.ProductID,
		VariantID:   l.VariantID,
		Quantity:    l.Quantity,
		UnitPrice:   price,
		Note:        l.Note,
		ProductName: l.ProductName,
		ImageURL:    l.ImageURL,
		AddedAt:     l.AddedAt,
	}, nil
}

func (d lineDocument) toDomain() domain.CartLine {
	price, err := decimal.NewFromString(d.UnitPrice.String())
	if err != nil {
		price = decimal.Zero
	}
	return domain.CartLine{
		ProductID:   d.ProductID,
		VariantID:   d.VariantID,
		Quantity:    d.Quantity,
		UnitPrice:   price,
		Note:        d.Note,
		ProductName: d.ProductName,
		ImageURL:    d.ImageURL,
		AddedAt:     d.AddedAt,
	}
}

type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

var _ Repository = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
		now:        time.Now,
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, sellerID string) (*Cart, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"seller_id": sellerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(doc.Items))
	for _, it := range doc.Items {
		lines = append(lines, it.toDomain())
	}
	return &Cart{
		SellerID:  doc.SellerID,
		Lines:     lines,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func lineFilter(key domain.LineKey) bson.M {
	return bson.M{"product_id": key.ProductID, "variant_id": key.VariantID}
}

func (m *MongoRepository) AddItem(ctx context.Context, sellerID string, line domain.CartLine) error {
	now := m.now()
	line.AddedAt = now

	// existing line: add to its quantity
	result, err := m.collection.UpdateOne(ctx,
		bson.M{
			"seller_id": sellerID,
			"items":     bson.M{"$elemMatch": lineFilter(line.Key())},
		},
		bson.M{
			"$inc": bson.M{"items.$.quantity": line.Quantity},
			"$set": bson.M{"items.$.added_at": now, "updated_at": now},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment item: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	doc, err := toLineDocument(line)
	if err != nil {
		return err
	}
	_, err = m.collection.UpdateOne(ctx,
		bson.M{"seller_id": sellerID},
		bson.M{
			"$push":        bson.M{"items": doc},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to add new item: %w", err)
	}
	return nil
}

func (m *MongoRepository) UpdateItemQuantity(ctx context.Context, sellerID string, key domain.LineKey, quantity int) error {
	filter := bson.M{
		"seller_id": sellerID,
		"items":     bson.M{"$elemMatch": lineFilter(key)},
	}
	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             m.now(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{"elem.product_id": key.ProductID, "elem.variant_id": key.VariantID},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m *MongoRepository) RemoveItem(ctx context.Context, sellerID string, key domain.LineKey) error {
	update := bson.M{
		"$pull": bson.M{"items": lineFilter(key)},
		"$set":  bson.M{"updated_at": m.now()},
	}

	result, err := m.collection.UpdateOne(ctx, bson.M{"seller_id": sellerID}, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteCart(ctx context.Context, sellerID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"seller_id": sellerID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "seller_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
