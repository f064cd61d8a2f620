package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"autofilter/internal/apperr"
	"autofilter/internal/models"
)

type UserRepository interface {
	Touch(ctx context.Context, userID int64, displayName string) error
	Get(ctx context.Context, userID int64) (*models.User, error)
	// ActiveIDs returns the ids of all users that are not banned.
	ActiveIDs(ctx context.Context) ([]int64, error)
	SetBanned(ctx context.Context, userID int64, banned bool) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewUserRepository(db *mongo.Database, logger *zap.Logger) UserRepository {
	return &userRepository{coll: db.Collection(usersCollection), logger: logger}
}

// Touch records an interaction. first_seen is only written on insert.
func (r *userRepository) Touch(ctx context.Context, userID int64, displayName string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"username": displayName, "last_seen": now},
		"$setOnInsert": bson.M{"first_seen": now, "banned": false},
	}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true)); err != nil {
		r.logger.Error("Failed to upsert user", zap.Int64("user_id", userID), zap.Error(err))
		return apperr.Transient("save user", err)
	}
	return nil
}

// Get returns nil, nil for unknown users.
func (r *userRepository) Get(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperr.Transient("get user", err)
	}
	return &u, nil
}

func (r *userRepository) ActiveIDs(ctx context.Context) ([]int64, error) {
	opts := options.Find().SetProjection(bson.M{"user_id": 1})
	cur, err := r.coll.Find(ctx, bson.M{"banned": bson.M{"$ne": true}}, opts)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, apperr.Transient("list users", err)
	}
	defer cur.Close(ctx)

	var ids []int64
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, apperr.Transient("list users", err)
		}
		ids = append(ids, u.UserID)
	}
	if err := cur.Err(); err != nil {
		return nil, apperr.Transient("list users", err)
	}
	return ids, nil
}

// SetBanned creates the user record if needed so bans can precede first contact.
func (r *userRepository) SetBanned(ctx context.Context, userID int64, banned bool) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"banned": banned}, "$setOnInsert": bson.M{"first_seen": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.Error("Failed to update ban status", zap.Int64("user_id", userID), zap.Bool("banned", banned), zap.Error(err))
		return false, apperr.Transient("update ban status", err)
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, apperr.Transient("count users", err)
	}
	return n, nil
}
