// Package settings holds the persisted sync switches and the auto-sync
// schedule under an explicit, versioned schema.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/rs/zerolog"
)

// CurrentVersion is the schema version written by Save.
const CurrentVersion = 1

// EntitySync holds the switches of one collection.
type EntitySync struct {
	SyncEnabled     bool `json:"syncEnabled"`
	AutoSyncEnabled bool `json:"autoSyncEnabled"`
}

// Active reports whether mutations should be mirrored right away. Both flags
// are checked because the toggle invariant is only enforced at toggle time.
func (e EntitySync) Active() bool {
	return e.SyncEnabled && e.AutoSyncEnabled
}

// AutoSync is the persisted schedule of the auto-sync manager.
type AutoSync struct {
	Enabled    bool      `json:"enabled"`
	IntervalMS int64     `json:"intervalMs"`
	LastSync   time.Time `json:"lastSync,omitempty"`
}

// Interval returns the schedule period.
func (a AutoSync) Interval() time.Duration {
	return time.Duration(a.IntervalMS) * time.Millisecond
}

// Settings is the whole persisted document.
type Settings struct {
	Version       int        `json:"version"`
	News          EntitySync `json:"news"`
	Events        EntitySync `json:"events"`
	Bidirectional bool       `json:"bidirectional"`
	AutoSync      AutoSync   `json:"autoSync"`
}

// legacy is the unversioned flat layout used before the schema existed.
type legacy struct {
	SyncEnabled       *bool `json:"syncEnabled"`
	AutoSyncEnabled   *bool `json:"autoSyncEnabled"`
	BidirectionalSync *bool `json:"bidirectionalSync"`
	// Credentials were stored alongside the flags; they are ignored now.
	APIURL string `json:"apiUrl"`
}

// Defaults returns settings with every sync switch off and the given
// auto-sync interval.
func Defaults(interval time.Duration) Settings {
	return Settings{
		Version:  CurrentVersion,
		AutoSync: AutoSync{IntervalMS: interval.Milliseconds()},
	}
}

// Store loads and saves Settings through a KV store. Updates are serialized.
type Store struct {
	kv       storage.KV
	defaults Settings
	mu       sync.Mutex
	log      zerolog.Logger
}

// NewStore creates a store that falls back to defaults.
func NewStore(kv storage.KV, defaults Settings) *Store {
	return &Store{
		kv:       kv,
		defaults: defaults,
		log:      logger.For("settings"),
	}
}

// Load never fails: missing, unreadable or malformed documents yield the
// defaults, legacy documents are migrated.
func (s *Store) Load(ctx context.Context) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) Settings {
	raw, err := s.kv.Get(ctx, storage.KeySettings)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Msg("Failed to read settings, using defaults")
		}
		return s.defaults
	}

	st, err := Decode(raw, s.defaults)
	if err != nil {
		s.log.Warn().Err(err).Msg("Malformed settings, using defaults")
		return s.defaults
	}
	return st
}

// Update applies fn to the current settings and persists the result.
func (s *Store) Update(ctx context.Context, fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.load(ctx)
	fn(&st)
	st.Version = CurrentVersion

	raw, err := json.Marshal(st)
	if err != nil {
		return st, fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Put(ctx, storage.KeySettings, raw); err != nil {
		return st, fmt.Errorf("save settings: %w", err)
	}
	return st, nil
}

// Decode parses a stored document, migrating older versions.
func Decode(raw []byte, defaults Settings) (Settings, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return defaults, err
	}

	if probe.Version == 0 {
		return migrateLegacy(raw, defaults)
	}

	st := defaults
	if err := json.Unmarshal(raw, &st); err != nil {
		return defaults, err
	}
	if st.AutoSync.IntervalMS <= 0 {
		st.AutoSync.IntervalMS = defaults.AutoSync.IntervalMS
	}
	return st, nil
}

func migrateLegacy(raw []byte, defaults Settings) (Settings, error) {
	var old legacy
	if err := json.Unmarshal(raw, &old); err != nil {
		return defaults, err
	}

	st := defaults
	if old.SyncEnabled != nil {
		st.News.SyncEnabled = *old.SyncEnabled
		st.Events.SyncEnabled = *old.SyncEnabled
	}
	if old.AutoSyncEnabled != nil {
		st.News.AutoSyncEnabled = *old.AutoSyncEnabled
		st.Events.AutoSyncEnabled = *old.AutoSyncEnabled
	}
	if old.BidirectionalSync != nil {
		st.Bidirectional = *old.BidirectionalSync
	}
	// Auto-sync was never on without sync in the legacy layout either.
	if !st.News.SyncEnabled {
		st.News.AutoSyncEnabled = false
	}
	if !st.Events.SyncEnabled {
		st.Events.AutoSyncEnabled = false
	}
	st.Version = CurrentVersion
	return st, nil
}
