package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yuiseki/data-gather/internal/model"
)

func optionsWithLimit(limit int64) *options.FindOptions {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return opts
}

// InterviewRepo handles MongoDB operations for interview definitions
type InterviewRepo interface {
	Create(ctx context.Context, interview *model.Interview) (string, error)
	GetByID(ctx context.Context, id string) (*model.Interview, error)
	List(ctx context.Context, limit int64) ([]*model.Interview, error)
	Update(ctx context.Context, interview *model.Interview) error
	Delete(ctx context.Context, id string) error
}

type interviewRepo struct {
	collection *mongo.Collection
}

// NewInterviewRepo creates a new interview repository
func NewInterviewRepo(db *mongo.Database) InterviewRepo {
	return &interviewRepo{
		collection: db.Collection("interviews"),
	}
}

func (r *interviewRepo) Create(ctx context.Context, interview *model.Interview) (string, error) {
	interview.CreatedAt = time.Now()
	interview.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, interview)
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return interview.ID, nil
	}
	return oid.Hex(), nil
}

func (r *interviewRepo) GetByID(ctx context.Context, id string) (*model.Interview, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var interview model.Interview
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&interview)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	interview.ID = id
	return &interview, nil
}

func (r *interviewRepo) List(ctx context.Context, limit int64) ([]*model.Interview, error) {
	opts := optionsWithLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var interviews []*model.Interview
	if err := cursor.All(ctx, &interviews); err != nil {
		return nil, err
	}
	return interviews, nil
}

func (r *interviewRepo) Update(ctx context.Context, interview *model.Interview) error {
	oid, err := primitive.ObjectIDFromHex(interview.ID)
	if err != nil {
		return err
	}

	interview.UpdatedAt = time.Now()
	_, err = r.collection.ReplaceOne(ctx, bson.M{"_id": oid}, interview)
	return err
}

func (r *interviewRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
