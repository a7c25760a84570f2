package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/filter"
)

type ticketDocument struct {
	ID           primitive.ObjectID    `bson:"_id,omitempty"`
	QueueID      string                `bson:"queue_id"`
	CategoryID   string                `bson:"category_id"`
	Title        string                `bson:"title"`
	Details      string                `bson:"details"`
	Status       domain.TicketStatus   `bson:"status"`
	Priority     domain.TicketPriority `bson:"priority"`
	AssignedToID *string               `bson:"assigned_to_id"`
	CreatedByID  string                `bson:"created_by_id"`
	DocumentIDs  []string              `bson:"document_ids"`
	ClosingNotes string                `bson:"closing_notes"`
	Archived     bool                  `bson:"archived"`
	CreatedAt    time.Time             `bson:"created_at"`
	UpdatedAt    time.Time             `bson:"updated_at"`
	ClosedAt     *time.Time            `bson:"closed_at"`
}

func (d ticketDocument) toDomain() domain.Ticket {
	docs := d.DocumentIDs
	if docs == nil {
		docs = []string{}
	}
	return domain.Ticket{
		ID:           d.ID.Hex(),
		QueueID:      d.QueueID,
		CategoryID:   d.CategoryID,
		Title:        d.Title,
		Details:      d.Details,
		Status:       d.Status,
		Priority:     d.Priority,
		AssignedToID: d.AssignedToID,
		CreatedByID:  d.CreatedByID,
		DocumentIDs:  docs,
		ClosingNotes: d.ClosingNotes,
		Archived:     d.Archived,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		ClosedAt:     d.ClosedAt,
	}
}

type mongoTicketRepository struct {
	collection *mongo.Collection
}

// NewMongoTicketRepository stores tickets in the "tickets" collection.
func NewMongoTicketRepository(db *mongo.Database) TicketRepository {
	return &mongoTicketRepository{collection: db.Collection("tickets")}
}

func (r *mongoTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	now := time.Now().UTC()
	docs := ticket.DocumentIDs
	if docs == nil {
		docs = []string{}
	}
	doc := ticketDocument{
		QueueID:      ticket.QueueID,
		CategoryID:   ticket.CategoryID,
		Title:        ticket.Title,
		Details:      ticket.Details,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		AssignedToID: ticket.AssignedToID,
		CreatedByID:  ticket.CreatedByID,
		DocumentIDs:  docs,
		ClosingNotes: ticket.ClosingNotes,
		Archived:     ticket.Archived,
		CreatedAt:    now,
		UpdatedAt:    now,
		ClosedAt:     ticket.ClosedAt,
	}
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	ticket.ID = result.InsertedID.(primitive.ObjectID).Hex()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	return nil
}

func (r *mongoTicketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc ticketDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ticket := doc.toDomain()
	return &ticket, nil
}

func (r *mongoTicketRepository) FindMatching(ctx context.Context, pred filter.Predicate, sort Sort, skip, limit int) ([]domain.Ticket, error) {
	query, err := compileBSON(pred)
	if err != nil {
		return nil, err
	}
	order, err := sortBSON(sort)
	if err != nil {
		return nil, err
	}

	findOptions := options.Find().SetSort(order)
	if skip > 0 {
		findOptions.SetSkip(int64(skip))
	}
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []ticketDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(docs))
	for _, d := range docs {
		tickets = append(tickets, d.toDomain())
	}
	return tickets, nil
}

func (r *mongoTicketRepository) CountMatching(ctx context.Context, pred filter.Predicate) (int64, error) {
	query, err := compileBSON(pred)
	if err != nil {
		return 0, err
	}
	return r.collection.CountDocuments(ctx, query)
}

func (r *mongoTicketRepository) UpdateFields(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc ticketDocument
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": patchBSON(patch)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ticket := doc.toDomain()
	return &ticket, nil
}

func patchBSON(patch domain.TicketPatch) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Details != nil {
		set["details"] = *patch.Details
	}
	if patch.CategoryID != nil {
		set["category_id"] = *patch.CategoryID
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.ClosingNotes != nil {
		set["closing_notes"] = *patch.ClosingNotes
	}
	if patch.Archived != nil {
		set["archived"] = *patch.Archived
	}
	if patch.DocumentIDs != nil {
		docs := *patch.DocumentIDs
		if docs == nil {
			docs = []string{}
		}
		set["document_ids"] = docs
	}
	if patch.AssignedToID.Set {
		set["assigned_to_id"] = patch.AssignedToID.Value
	}
	if patch.ClosedAt.Set {
		set["closed_at"] = patch.ClosedAt.Value
	}
	return set
}

func (r *mongoTicketRepository) Delete(ctx context.Context, id string) error {
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
