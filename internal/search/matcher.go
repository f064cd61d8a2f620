package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"autofilter/internal/models"
)

// DefaultMaxResults caps a name search when no limit is configured.
const DefaultMaxResults = 50

// MatchKind tells how a query was resolved.
type MatchKind int

const (
	MatchEmpty MatchKind = iota
	MatchExact
	MatchSearch
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSearch:
		return "search"
	default:
		return "empty"
	}
}

// MatchResult is the outcome of Resolve. FileID, FileType and Caption are set
// for MatchExact, Files for MatchSearch.
type MatchResult struct {
	Kind     MatchKind
	FileID   string
	FileType models.MediaKind
	Caption  string
	Files    []models.IndexedFile
}

// FilterFinder looks up manual filters.
type FilterFinder interface {
	Find(ctx context.Context, chatID int64, keyword string) (*models.ManualFilter, error)
}

// FileSearcher runs substring searches over indexed file names.
type FileSearcher interface {
	SearchByName(ctx context.Context, query string, limit int) ([]models.IndexedFile, error)
}

// Matcher resolves free-text queries against manual filters and the file index.
type Matcher struct {
	filters FilterFinder
	files   FileSearcher
	limit   int
	logger  *zap.Logger
}

func NewMatcher(filters FilterFinder, files FileSearcher, limit int, logger *zap.Logger) *Matcher {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	return &Matcher{filters: filters, files: files, limit: limit, logger: logger}
}

// Resolve returns an exact manual filter hit for the chat if one exists,
// otherwise the capped search results.
func (m *Matcher) Resolve(ctx context.Context, chatID int64, query string) (MatchResult, error) {
	keyword := models.NormalizeKeyword(query)
	if keyword == "" {
		return MatchResult{Kind: MatchEmpty}, nil
	}

	f, err := m.filters.Find(ctx, chatID, keyword)
	if err != nil {
		return MatchResult{}, fmt.Errorf("resolve %q: %w", keyword, err)
	}
	if f != nil {
		m.logger.Debug("Manual filter matched", zap.Int64("chat_id", chatID), zap.String("keyword", keyword))
		return MatchResult{Kind: MatchExact, FileID: f.FileID, FileType: f.FileType, Caption: f.Caption}, nil
	}

	files, err := m.Search(ctx, keyword)
	if err != nil {
		return MatchResult{}, err
	}
	if len(files) == 0 {
		return MatchResult{Kind: MatchEmpty}, nil
	}
	return MatchResult{Kind: MatchSearch, Files: files}, nil
}

// Search runs only the file index lookup. Callbacks use it to re-derive
// results from the query carried in the button payload.
func (m *Matcher) Search(ctx context.Context, query string) ([]models.IndexedFile, error) {
	q := models.NormalizeKeyword(query)
	if q == "" {
		return nil, nil
	}
	files, err := m.files.SearchByName(ctx, q, m.limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	if len(files) > m.limit {
		files = files[:m.limit]
	}
	return files, nil
}

// Limit returns the result cap.
func (m *Matcher) Limit() int {
	return m.limit
}
