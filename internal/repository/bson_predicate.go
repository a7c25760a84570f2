package repository

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/helpdesk/internal/filter"
)

var ticketKeys = map[filter.Field]string{
	filter.FieldID:         "_id",
	filter.FieldQueue:      "queue_id",
	filter.FieldCategory:   "category_id",
	filter.FieldStatus:     "status",
	filter.FieldPriority:   "priority",
	filter.FieldAssignedTo: "assigned_to_id",
	filter.FieldCreatedBy:  "created_by_id",
	filter.FieldTitle:      "title",
	filter.FieldDetails:    "details",
	filter.FieldDocuments:  "document_ids",
	filter.FieldCreatedAt:  "created_at",
	filter.FieldUpdatedAt:  "updated_at",
	filter.FieldClosedAt:   "closed_at",
	filter.FieldArchived:   "archived",
}

// matchNothing selects no document; every stored document carries an _id.
var matchNothing = bson.M{"_id": bson.M{"$exists": false}}

// compileBSON renders p as a Mongo query document.
func compileBSON(p filter.Predicate) (bson.M, error) {
	switch p.Op {
	case filter.OpAll:
		return bson.M{}, nil
	case filter.OpNone:
		return matchNothing, nil
	case filter.OpAnd, filter.OpOr, filter.OpNot:
		parts := make(bson.A, 0, len(p.Children))
		for _, c := range p.Children {
			part, err := compileBSON(c)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		key := map[filter.Op]string{filter.OpAnd: "$and", filter.OpOr: "$or", filter.OpNot: "$nor"}[p.Op]
		return bson.M{key: parts}, nil
	}

	key, ok := ticketKeys[p.Field]
	if !ok {
		return nil, fmt.Errorf("unsupported filter field %q", p.Field)
	}

	switch p.Op {
	case filter.OpIn:
		values := bson.A{}
		for _, v := range p.Values {
			if p.Field != filter.FieldID {
				values = append(values, v)
				continue
			}
			// ids that are not ObjectIDs cannot match a stored document
			if oid, err := primitive.ObjectIDFromHex(v); err == nil {
				values = append(values, oid)
			}
		}
		if len(values) == 0 {
			return matchNothing, nil
		}
		if len(values) == 1 {
			return bson.M{key: values[0]}, nil
		}
		return bson.M{key: bson.M{"$in": values}}, nil
	case filter.OpIsNull:
		return bson.M{key: nil}, nil
	case filter.OpGTE:
		return bson.M{key: bson.M{"$gte": p.Time}}, nil
	case filter.OpLTE:
		return bson.M{key: bson.M{"$lte": p.Time}}, nil
	case filter.OpContains:
		return bson.M{key: primitive.Regex{Pattern: regexp.QuoteMeta(p.Text), Options: "i"}}, nil
	case filter.OpEmpty:
		return bson.M{key + ".0": bson.M{"$exists": false}}, nil
	case filter.OpIsTrue:
		return bson.M{key: true}, nil
	}
	return nil, fmt.Errorf("unsupported filter op %q", p.Op)
}

func sortBSON(sort Sort) (bson.D, error) {
	key, ok := ticketKeys[sort.Field]
	if !ok {
		return nil, fmt.Errorf("unsupported sort field %q", sort.Field)
	}
	dir := 1
	if sort.Desc {
		dir = -1
	}
	if key == "_id" {
		return bson.D{{Key: "_id", Value: dir}}, nil
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}, nil
}
