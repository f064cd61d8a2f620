package models

import "strings"

// ManualFilter maps a keyword in a chat to a specific file.
type ManualFilter struct {
	ChatID   int64     `bson:"chat_id" json:"chat_id"`
	Keyword  string    `bson:"keyword" json:"keyword"` // always lower-cased
	FileID   string    `bson:"file_id" json:"file_id"`
	FileType MediaKind `bson:"file_type,omitempty" json:"file_type,omitempty"`
	Caption  string    `bson:"caption" json:"caption"`
}

// NormalizeKeyword case-folds and trims a keyword or query.
func NormalizeKeyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
