package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"autofilter/internal/config"
)

// New builds the process logger. Entries at warn level and above are also kept
// in the returned Recent buffer for the /logs command.
func New(cfg *config.Config) (*zap.Logger, *Recent, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Log.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Encoding = "console"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	recent := NewRecent(cfg.Log.RecentEntries)
	l, err := zapCfg.Build(zap.Hooks(recent.Hook))
	if err != nil {
		return nil, nil, err
	}
	return l, recent, nil
}

// Recent is a fixed-size ring of the latest warn+ log lines.
type Recent struct {
	mu      sync.Mutex
	entries []string
	next    int
	full    bool
}

func NewRecent(size int) *Recent {
	if size <= 0 {
		size = 1
	}
	return &Recent{entries: make([]string, size)}
}

// Hook is a zap entry hook.
func (r *Recent) Hook(e zapcore.Entry) error {
	if e.Level < zapcore.WarnLevel {
		return nil
	}
	r.add(fmt.Sprintf("%s %s %s", e.Time.Format("2006-01-02 15:04:05"), e.Level.CapitalString(), e.Message))
	return nil
}

func (r *Recent) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = line
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Lines returns the buffered lines, oldest first.
func (r *Recent) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]string(nil), r.entries[:r.next]...)
	}
	out := make([]string, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}
