package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"query-router/internal/common/logger"
)

var ErrNoSnapshot = errors.New("NO_SNAPSHOT_LOADED")

// ReloadHook observes every reload attempt.
type ReloadHook func(snap *Snapshot, err error, took time.Duration)

// Store publishes one snapshot at a time. Readers never block; reloads are
// serialized and replace the snapshot whole.
type Store struct {
	current atomic.Pointer[Snapshot]
	loader  Loader
	log     logger.Logger

	reloadMu sync.Mutex
	hooksMu  sync.RWMutex
	hooks    []ReloadHook
}

func NewStore(loader Loader, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{loader: loader, log: log}
}

// NewStaticStore publishes a fixed snapshot. Reload fails unless a source is
// configured.
func NewStaticStore(snap *Snapshot) *Store {
	s := NewStore(Loader{}, nil)
	s.current.Store(snap)
	return s
}

// Load returns the current snapshot or nil before the first successful load.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

func (s *Store) OnReload(h ReloadHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Reload builds a new snapshot and swaps it in. On failure the previous
// snapshot stays published.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	snap, err := s.loader.Load(ctx)
	took := time.Since(start)

	if err != nil {
		s.log.Error("Snapshot reload failed, keeping previous snapshot", map[string]interface{}{
			"error":    err,
			"previous": s.versionOf(s.current.Load()),
		})
	} else {
		previous := s.current.Swap(snap)
		s.log.Info("Snapshot reloaded", map[string]interface{}{
			"version":  snap.Version,
			"previous": s.versionOf(previous),
			"source":   snap.Source,
			"rule_set": snap.Rules.Name,
			"took_ms":  took.Milliseconds(),
		})
	}

	s.hooksMu.RLock()
	hooks := append([]ReloadHook(nil), s.hooks...)
	s.hooksMu.RUnlock()
	for _, h := range hooks {
		h(snap, err, took)
	}

	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) versionOf(snap *Snapshot) string {
	if snap == nil {
		return ""
	}
	return snap.Version
}
