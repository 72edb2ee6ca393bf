package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yuiseki/data-gather/internal/model"
)

// SettingRepo handles MongoDB operations for per-interview external-store
// settings
type SettingRepo interface {
	GetByInterviewID(ctx context.Context, interviewID string) (*model.InterviewSetting, error)
	Upsert(ctx context.Context, setting *model.InterviewSetting) error
}

type settingRepo struct {
	collection *mongo.Collection
}

// NewSettingRepo creates a new setting repository
func NewSettingRepo(db *mongo.Database) SettingRepo {
	return &settingRepo{
		collection: db.Collection("interview_settings"),
	}
}

func (r *settingRepo) GetByInterviewID(ctx context.Context, interviewID string) (*model.InterviewSetting, error) {
	var setting model.InterviewSetting
	err := r.collection.FindOne(ctx, bson.M{
		"interviewId": interviewID,
		"type":        model.InterviewSettingAirtable,
	}).Decode(&setting)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepo) Upsert(ctx context.Context, setting *model.InterviewSetting) error {
	setting.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"interviewId": setting.InterviewID, "type": setting.Type},
		setting,
		options.Replace().SetUpsert(true),
	)
	return err
}
