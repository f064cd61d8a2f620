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

// SettingRepository stores per-user captions and thumbnails.
type SettingRepository interface {
	SaveCaption(ctx context.Context, userID int64, caption string) error
	GetCaption(ctx context.Context, userID int64) (string, bool, error)
	DeleteCaption(ctx context.Context, userID int64) (bool, error)

	SaveThumbnail(ctx context.Context, userID int64, thumbID string, lazy bool) error
	GetThumbnail(ctx context.Context, userID int64, lazy bool) (string, bool, error)
	DeleteThumbnail(ctx context.Context, userID int64, lazy bool) (bool, error)
}

type settingRepository struct {
	settings   *mongo.Collection
	thumbnails *mongo.Collection
	logger     *zap.Logger
}

func NewSettingRepository(db *mongo.Database, logger *zap.Logger) SettingRepository {
	return &settingRepository{
		settings:   db.Collection(settingsCollection),
		thumbnails: db.Collection(thumbnailsCollection),
		logger:     logger,
	}
}

func (r *settingRepository) SaveCaption(ctx context.Context, userID int64, caption string) error {
	_, err := r.settings.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"caption": caption}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.Error("Failed to save caption", zap.Int64("user_id", userID), zap.Error(err))
		return apperr.Transient("save caption", err)
	}
	return nil
}

func (r *settingRepository) GetCaption(ctx context.Context, userID int64) (string, bool, error) {
	var s models.UserSetting
	err := r.settings.FindOne(ctx, bson.M{"user_id": userID}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, apperr.Transient("get caption", err)
	}
	return s.Caption, s.Caption != "", nil
}

func (r *settingRepository) DeleteCaption(ctx context.Context, userID int64) (bool, error) {
	res, err := r.settings.DeleteOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		r.logger.Error("Failed to delete caption", zap.Int64("user_id", userID), zap.Error(err))
		return false, apperr.Transient("delete caption", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *settingRepository) SaveThumbnail(ctx context.Context, userID int64, thumbID string, lazy bool) error {
	_, err := r.thumbnails.UpdateOne(ctx,
		bson.M{"user_id": userID, "is_lazy": lazy},
		bson.M{"$set": bson.M{"thumb_id": thumbID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.Error("Failed to save thumbnail", zap.Int64("user_id", userID), zap.Bool("lazy", lazy), zap.Error(err))
		return apperr.Transient("save thumbnail", err)
	}
	return nil
}

func (r *settingRepository) GetThumbnail(ctx context.Context, userID int64, lazy bool) (string, bool, error) {
	var t models.Thumbnail
	err := r.thumbnails.FindOne(ctx, bson.M{"user_id": userID, "is_lazy": lazy}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, apperr.Transient("get thumbnail", err)
	}
	return t.ThumbID, true, nil
}

func (r *settingRepository) DeleteThumbnail(ctx context.Context, userID int64, lazy bool) (bool, error) {
	res, err := r.thumbnails.DeleteOne(ctx, bson.M{"user_id": userID, "is_lazy": lazy})
	if err != nil {
		r.logger.Error("Failed to delete thumbnail", zap.Int64("user_id", userID), zap.Bool("lazy", lazy), zap.Error(err))
		return false, apperr.Transient("delete thumbnail", err)
	}
	return res.DeletedCount > 0, nil
}
