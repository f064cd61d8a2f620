package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaKind is the Telegram media type of an indexed file.
type MediaKind string

const (
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
)

// Quality is a coarse resolution tag extracted from a file name.
type Quality string

const (
	Quality480p    Quality = "480p"
	Quality540p    Quality = "540p"
	Quality720p    Quality = "720p"
	Quality1080p   Quality = "1080p"
	Quality2160p   Quality = "2160p"
	QualityUnknown Quality = "Unknown"
)

// QualityOrder is the fixed ordering used both for detection and for display.
var QualityOrder = []Quality{
	Quality480p,
	Quality540p,
	Quality720p,
	Quality1080p,
	Quality2160p,
	QualityUnknown,
}

// Rank returns the position of q in QualityOrder. Labels outside the
// enumeration sort after Unknown.
func (q Quality) Rank() int {
	for i, v := range QualityOrder {
		if v == q {
			return i
		}
	}
	return len(QualityOrder)
}

// DetectQuality returns the first quality token (in QualityOrder) contained in
// name, or QualityUnknown. Matching ignores case, so "Movie.1080P.mkv" is
// 1080p rather than Unknown as a case-sensitive check would have it.
func DetectQuality(name string) Quality {
	lower := strings.ToLower(name)
	for _, q := range QualityOrder {
		if q == QualityUnknown {
			break
		}
		if strings.Contains(lower, string(q)) {
			return q
		}
	}
	return QualityUnknown
}

// IndexedFile is a media file seen in a monitored channel.
type IndexedFile struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID       int64              `bson:"chat_id" json:"chat_id"`
	FileID       string             `bson:"file_id" json:"file_id"`
	FileUniqueID string             `bson:"file_unique_id,omitempty" json:"file_unique_id,omitempty"`
	FileName     string             `bson:"file_name" json:"file_name"`
	FileType     MediaKind          `bson:"file_type" json:"file_type"`
	Quality      Quality            `bson:"quality" json:"quality"`
	Caption      string             `bson:"caption" json:"caption"`
	CreatedAt    time.Time          `bson:"timestamp" json:"created_at"`
}

// NewIndexedFile builds a file record, deriving its quality from the name.
func NewIndexedFile(chatID int64, fileID, uniqueID, name string, kind MediaKind, caption string) *IndexedFile {
	return &IndexedFile{
		ChatID:       chatID,
		FileID:       fileID,
		FileUniqueID: uniqueID,
		FileName:     name,
		FileType:     kind,
		Quality:      DetectQuality(name),
		Caption:      caption,
		CreatedAt:    time.Now().UTC(),
	}
}
