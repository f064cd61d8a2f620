package models

import "time"

type User struct {
	UserID      int64     `bson:"user_id" json:"user_id"`
	DisplayName string    `bson:"username" json:"display_name"`
	FirstSeen   time.Time `bson:"first_seen" json:"first_seen"`
	LastSeen    time.Time `bson:"last_seen" json:"last_seen"`
	Banned      bool      `bson:"banned" json:"banned"`
}

// UserSetting holds the per-user custom caption.
type UserSetting struct {
	UserID  int64  `bson:"user_id" json:"user_id"`
	Caption string `bson:"caption" json:"caption"`
}

// Thumbnail is a stored thumbnail photo; a user has at most one normal and one lazy.
type Thumbnail struct {
	UserID  int64  `bson:"user_id" json:"user_id"`
	IsLazy  bool   `bson:"is_lazy" json:"is_lazy"`
	ThumbID string `bson:"thumb_id" json:"thumb_id"`
}

// Stats are collection counts reported by /stats.
type Stats struct {
	Files   int64
	Filters int64
	Users   int64
}
