package telegram_bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"autofilter/internal/config"
	"autofilter/internal/logger"
	"autofilter/internal/models"
	"autofilter/internal/outbox"
	"autofilter/internal/search"
)

const (
	adminID      = int64(1)
	renamerID    = int64(2)
	userID       = int64(42)
	groupID      = int64(-500)
	storeChannel = int64(-1001)
	logChannel   = int64(-1009)
)

// fakeAPI records everything the bot sends.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	updates  chan tgbotapi.Update
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: 1000 + f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) Sent() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

func (f *fakeAPI) Requests() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.requests...)
}

// Texts returns the text of every plain message sent to chatID.
func (f *fakeAPI) Texts(chatID int64) []string {
	var out []string
	for _, c := range f.Sent() {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) Answers() []tgbotapi.CallbackConfig {
	var out []tgbotapi.CallbackConfig
	for _, c := range f.Requests() {
		if a, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

type memFiles struct {
	mu    sync.Mutex
	files []models.IndexedFile
	err   error
}

func (m *memFiles) Save(_ context.Context, f *models.IndexedFile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, existing := range m.files {
		if existing.ChatID == f.ChatID && existing.FileID == f.FileID {
			return false, nil
		}
	}
	f.ID = primitive.NewObjectID()
	m.files = append(m.files, *f)
	return true, nil
}

func (m *memFiles) SearchByName(_ context.Context, query string, limit int) ([]models.IndexedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.IndexedFile
	for _, f := range m.files {
		if strings.Contains(strings.ToLower(f.FileName), strings.ToLower(query)) {
			out = append(out, f)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memFiles) Delete(_ context.Context, fileID, uniqueID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.files[:0]
	var n int64
	for _, f := range m.files {
		if f.FileID == fileID || (uniqueID != "" && f.FileUniqueID == uniqueID) {
			n++
			continue
		}
		kept = append(kept, f)
	}
	m.files = kept
	return n, nil
}

func (m *memFiles) DeleteAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.files))
	m.files = nil
	return n, nil
}

func (m *memFiles) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.files)), m.err
}

func (m *memFiles) add(chatID int64, names ...string) {
	for _, name := range names {
		f := models.NewIndexedFile(chatID, "FID-"+name, "UID-"+name, name, models.MediaDocument, "cap "+name)
		_, _ = m.Save(context.Background(), f)
	}
}

type memFilters struct {
	mu      sync.Mutex
	filters map[string]models.ManualFilter
}

func filterKey(chatID int64, keyword string) string {
	return fmt.Sprintf("%d|%s", chatID, keyword)
}

func (m *memFilters) Upsert(_ context.Context, f models.ManualFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters[filterKey(f.ChatID, f.Keyword)] = f
	return nil
}

func (m *memFilters) Find(_ context.Context, chatID int64, keyword string) (*models.ManualFilter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.filters[filterKey(chatID, keyword)]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *memFilters) List(_ context.Context, chatID int64) ([]models.ManualFilter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ManualFilter
	for _, f := range m.filters {
		if f.ChatID == chatID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })
	return out, nil
}

func (m *memFilters) Delete(_ context.Context, chatID int64, keyword string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := filterKey(chatID, keyword)
	_, ok := m.filters[key]
	delete(m.filters, key)
	return ok, nil
}

func (m *memFilters) DeleteAll(_ context.Context, chatID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, f := range m.filters {
		if f.ChatID == chatID {
			delete(m.filters, k)
			n++
		}
	}
	return n, nil
}

func (m *memFilters) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filters)), nil
}

type thumbKey struct {
	userID int64
	lazy   bool
}

type memSettings struct {
	mu       sync.Mutex
	captions map[int64]string
	thumbs   map[thumbKey]string
}

func (m *memSettings) SaveCaption(_ context.Context, userID int64, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captions[userID] = caption
	return nil
}

func (m *memSettings) GetCaption(_ context.Context, userID int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.captions[userID]
	return c, ok, nil
}

func (m *memSettings) DeleteCaption(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.captions[userID]
	delete(m.captions, userID)
	return ok, nil
}

func (m *memSettings) SaveThumbnail(_ context.Context, userID int64, thumbID string, lazy bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thumbs[thumbKey{userID, lazy}] = thumbID
	return nil
}

func (m *memSettings) GetThumbnail(_ context.Context, userID int64, lazy bool) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.thumbs[thumbKey{userID, lazy}]
	return t, ok, nil
}

func (m *memSettings) DeleteThumbnail(_ context.Context, userID int64, lazy bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := thumbKey{userID, lazy}
	_, ok := m.thumbs[k]
	delete(m.thumbs, k)
	return ok, nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func (m *memUsers) Touch(_ context.Context, id int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	u, ok := m.users[id]
	if !ok {
		u = &models.User{UserID: id, FirstSeen: now}
		m.users[id] = u
	}
	u.DisplayName = name
	u.LastSeen = now
	return nil
}

func (m *memUsers) Get(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ActiveIDs(context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, u := range m.users {
		if !u.Banned {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memUsers) SetBanned(_ context.Context, id int64, banned bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		u = &models.User{UserID: id}
		m.users[id] = u
	}
	u.Banned = banned
	return !ok, nil
}

func (m *memUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

type harness struct {
	bot      *Bot
	api      *fakeAPI
	files    *memFiles
	filters  *memFilters
	settings *memSettings
	users    *memUsers
	recent   *logger.Recent
	pager    *search.Pager
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  bot_token: "test-token"
  workers: 4
database:
  uri: "mongodb://localhost:27017"
channels:
  log: -1009
  file_store: [-1001]
access:
  admins: [1]
  lazy_renamers: [2]
search:
  page_size: 2
  all_limit: 3
outbox:
  workers: 2
  per_chat_per_second: 1000
`), 0o600))
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	return cfg
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testConfig(t)
	log := zap.NewNop()

	h := &harness{
		api:      &fakeAPI{updates: make(chan tgbotapi.Update)},
		files:    &memFiles{},
		filters:  &memFilters{filters: map[string]models.ManualFilter{}},
		settings: &memSettings{captions: map[int64]string{}, thumbs: map[thumbKey]string{}},
		users:    &memUsers{users: map[int64]*models.User{}},
		recent:   logger.NewRecent(10),
	}
	h.pager = search.NewPager(cfg.Search.PageSize, cfg.Pager.MaxInteractions, cfg.PagerTTL())

	ob := outbox.New(h.api, cfg.Outbox.Workers, cfg.Outbox.QueueSize, cfg.Outbox.PerChatPerSecond, log)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ob.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	h.bot = NewBot(h.api, "autofilter_bot", cfg, Deps{
		Files:    h.files,
		Filters:  h.filters,
		Settings: h.settings,
		Users:    h.users,
		Matcher:  search.NewMatcher(h.filters, h.files, cfg.Search.MaxResults, log),
		Pager:    h.pager,
		Outbox:   ob,
		Recent:   h.recent,
	}, log)
	return h
}

func groupChat() *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: groupID, Type: "supergroup", Title: "Movies"}
}

func privateChat(id int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: "private"}
}

func textUpdate(chat *tgbotapi.Chat, from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: from, FirstName: "Ann", UserName: "ann"},
		Chat:      chat,
		Text:      text,
	}}
}

// commandUpdate builds a message whose text starts with a bot command entity.
func commandUpdate(chat *tgbotapi.Chat, from int64, text string) tgbotapi.Update {
	u := textUpdate(chat, from, text)
	cmd, _, _ := strings.Cut(text, " ")
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	return u
}

func callbackUpdate(from int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: from, FirstName: "Ann"},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: groupChat()},
		Data:    data,
	}}
}

func documentMessage(name string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 7,
		Chat:      groupChat(),
		Caption:   "caption of " + name,
		Document:  &tgbotapi.Document{FileID: "FID-" + name, FileUniqueID: "UID-" + name, FileName: name},
	}
}
