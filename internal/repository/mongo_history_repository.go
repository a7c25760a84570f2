package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type historyDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	TicketID  string             `bson:"ticket_id"`
	UserID    string             `bson:"user_id"`
	Type      domain.HistoryType `bson:"type"`
	Details   string             `bson:"details"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d historyDocument) toDomain() domain.HistoryItem {
	return domain.HistoryItem{
		ID:        d.ID.Hex(),
		TicketID:  d.TicketID,
		UserID:    d.UserID,
		Type:      d.Type,
		Details:   d.Details,
		CreatedAt: d.CreatedAt,
	}
}

type mongoHistoryRepository struct {
	collection *mongo.Collection
}

// NewMongoHistoryRepository stores entries in the "ticket_history" collection.
func NewMongoHistoryRepository(db *mongo.Database) HistoryRepository {
	return &mongoHistoryRepository{collection: db.Collection("ticket_history")}
}

func (r *mongoHistoryRepository) Create(ctx context.Context, item *domain.HistoryItem) error {
	doc := historyDocument{
		TicketID:  item.TicketID,
		UserID:    item.UserID,
		Type:      item.Type,
		Details:   item.Details,
		CreatedAt: time.Now().UTC(),
	}
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	item.ID = result.InsertedID.(primitive.ObjectID).Hex()
	item.CreatedAt = doc.CreatedAt
	return nil
}

func (r *mongoHistoryRepository) GetByID(ctx context.Context, id string) (*domain.HistoryItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc historyDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	item := doc.toDomain()
	return &item, nil
}

func (r *mongoHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"ticket_id": ticketID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []historyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]domain.HistoryItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toDomain())
	}
	return items, nil
}

func (r *mongoHistoryRepository) FindTicketIDs(ctx context.Context, typ domain.HistoryType, text *string) ([]string, error) {
	query := bson.M{"type": typ}
	if text != nil {
		query["details"] = primitive.Regex{Pattern: regexp.QuoteMeta(*text), Options: "i"}
	}
	values, err := r.collection.Distinct(ctx, "ticket_id", query)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *mongoHistoryRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
