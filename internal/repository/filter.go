package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"autofilter/internal/apperr"
	"autofilter/internal/models"
)

// FilterRepository stores manual keyword filters. Keywords are normalized on
// every call so callers may pass any case.
type FilterRepository interface {
	Upsert(ctx context.Context, f models.ManualFilter) error
	Find(ctx context.Context, chatID int64, keyword string) (*models.ManualFilter, error)
	List(ctx context.Context, chatID int64) ([]models.ManualFilter, error)
	Delete(ctx context.Context, chatID int64, keyword string) (bool, error)
	DeleteAll(ctx context.Context, chatID int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type filterRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewFilterRepository(db *mongo.Database, logger *zap.Logger) FilterRepository {
	return &filterRepository{coll: db.Collection(filtersCollection), logger: logger}
}

func (r *filterRepository) Upsert(ctx context.Context, f models.ManualFilter) error {
	filter := bson.M{"chat_id": f.ChatID, "keyword": models.NormalizeKeyword(f.Keyword)}
	update := bson.M{"$set": bson.M{"file_id": f.FileID, "file_type": f.FileType, "caption": f.Caption}}

	if _, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		r.logger.Error("Failed to upsert filter", zap.Int64("chat_id", f.ChatID), zap.String("keyword", f.Keyword), zap.Error(err))
		return apperr.Transient("save filter", err)
	}
	return nil
}

// Find returns nil, nil when no filter exists.
func (r *filterRepository) Find(ctx context.Context, chatID int64, keyword string) (*models.ManualFilter, error) {
	var f models.ManualFilter
	err := r.coll.FindOne(ctx, bson.M{"chat_id": chatID, "keyword": models.NormalizeKeyword(keyword)}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to find filter", zap.Int64("chat_id", chatID), zap.String("keyword", keyword), zap.Error(err))
		return nil, apperr.Transient("find filter", err)
	}
	return &f, nil
}

func (r *filterRepository) List(ctx context.Context, chatID int64) ([]models.ManualFilter, error) {
	cur, err := r.coll.Find(ctx, bson.M{"chat_id": chatID}, options.Find().SetSort(bson.D{{Key: "keyword", Value: 1}}))
	if err != nil {
		r.logger.Error("Failed to list filters", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, apperr.Transient("list filters", err)
	}
	defer cur.Close(ctx)

	var filters []models.ManualFilter
	if err := cur.All(ctx, &filters); err != nil {
		return nil, apperr.Transient("list filters", err)
	}
	return filters, nil
}

func (r *filterRepository) Delete(ctx context.Context, chatID int64, keyword string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"chat_id": chatID, "keyword": models.NormalizeKeyword(keyword)})
	if err != nil {
		r.logger.Error("Failed to delete filter", zap.Int64("chat_id", chatID), zap.String("keyword", keyword), zap.Error(err))
		return false, apperr.Transient("delete filter", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *filterRepository) DeleteAll(ctx context.Context, chatID int64) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		r.logger.Error("Failed to delete all filters", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0, apperr.Transient("delete all filters", err)
	}
	return res.DeletedCount, nil
}

func (r *filterRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, apperr.Transient("count filters", err)
	}
	return n, nil
}
