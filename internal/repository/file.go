package repository

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"autofilter/internal/apperr"
	"autofilter/internal/models"
)

// FileRepository stores indexed media files.
type FileRepository interface {
	// Save inserts the file unless the same (chat, file id) pair is already
	// indexed. It reports whether a new record was created.
	Save(ctx context.Context, file *models.IndexedFile) (bool, error)
	SearchByName(ctx context.Context, query string, limit int) ([]models.IndexedFile, error)
	Delete(ctx context.Context, fileID, fileUniqueID string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type fileRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewFileRepository(db *mongo.Database, logger *zap.Logger) FileRepository {
	return &fileRepository{coll: db.Collection(filesCollection), logger: logger}
}

func (r *fileRepository) Save(ctx context.Context, file *models.IndexedFile) (bool, error) {
	filter := bson.M{"chat_id": file.ChatID, "file_id": file.FileID}
	update := bson.M{"$setOnInsert": file}

	res, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to save file", zap.String("file_name", file.FileName), zap.Error(err))
		return false, apperr.Transient("save file", err)
	}
	return res.UpsertedCount > 0, nil
}

// SearchByName does a case-insensitive literal substring match on file_name.
// Results are ordered by _id so identical queries page identically.
func (r *fileRepository) SearchByName(ctx context.Context, query string, limit int) ([]models.IndexedFile, error) {
	filter := bson.M{"file_name": bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to search files", zap.String("query", query), zap.Error(err))
		return nil, apperr.Transient("search files", err)
	}
	defer cur.Close(ctx)

	var files []models.IndexedFile
	if err := cur.All(ctx, &files); err != nil {
		r.logger.Error("Failed to decode files", zap.String("query", query), zap.Error(err))
		return nil, apperr.Transient("search files", err)
	}
	return files, nil
}

func (r *fileRepository) Delete(ctx context.Context, fileID, fileUniqueID string) (int64, error) {
	or := bson.A{bson.M{"file_id": fileID}}
	if fileUniqueID != "" {
		or = append(or, bson.M{"file_unique_id": fileUniqueID})
	}

	res, err := r.coll.DeleteMany(ctx, bson.M{"$or": or})
	if err != nil {
		r.logger.Error("Failed to delete file", zap.String("file_id", fileID), zap.Error(err))
		return 0, apperr.Transient("delete file", err)
	}
	return res.DeletedCount, nil
}

func (r *fileRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		r.logger.Error("Failed to delete all files", zap.Error(err))
		return 0, apperr.Transient("delete all files", err)
	}
	return res.DeletedCount, nil
}

func (r *fileRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, apperr.Transient("count files", err)
	}
	return n, nil
}
