// Package content owns the local News and Event collections and mirrors
// their mutations to WordPress when sync is switched on.
//
// The local collection is always the source of truth: a failed remote call
// never blocks or reverts a local change. Failures are reported through
// LastStatus and the log.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/settings"
	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/bilgisen/wpsync/internal/wordpress"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned for unknown local ids.
	ErrNotFound = errors.New("content: item not found")
	// ErrSyncDisabled rejects enabling auto-sync while sync is off.
	ErrSyncDisabled = errors.New("content: sync is disabled")
	// ErrNoRemote is returned by explicit pushes when no WordPress
	// connection is configured.
	ErrNoRemote = errors.New("content: no WordPress connection configured")
)

// Remote is the write side of the WordPress client.
type Remote interface {
	CreatePost(ctx context.Context, p wordpress.PostPayload) (*models.Post, error)
	UpdatePost(ctx context.Context, id int, p wordpress.PostPayload) (*models.Post, error)
	DeletePost(ctx context.Context, id int, force bool) error
}

// Item is implemented by the pointer types of the collected models.
type Item interface {
	GetID() int
	SetID(id int)
	RemoteID() *int
	SetRemoteID(id *int)
	Touch(t time.Time)
}

// Deps are the collaborators shared by all collections.
type Deps struct {
	KV       storage.KV
	Settings *settings.Store
	// Remote may be nil when the WordPress connection is disabled.
	Remote Remote
	Now    func() time.Time
}

// kind describes how one model type is stored and mapped.
type kind[T any] struct {
	name      string
	key       string
	switches  func(*settings.Settings) *settings.EntitySync
	payload   func(*T) wordpress.PostPayload
	applyPost func(models.Post, *T)
	// fromPost builds a new local item for an unmatched remote post. Nil
	// means unmatched posts are ignored.
	fromPost func(models.Post) T
}

// ApplyResult counts what ApplyRemote did.
type ApplyResult struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// PushResult counts what PushUnsynced did.
type PushResult struct {
	Pushed int      `json:"pushed"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// Collection is the generic local collection. PT is the pointer type of T.
type Collection[T any, PT interface {
	*T
	Item
}] struct {
	deps Deps
	kind kind[T]
	seed []T
	log  zerolog.Logger

	mu     sync.Mutex
	items  []T
	nextID int
	status string

	// syncMu serializes remote writes so an unsynced item is never
	// created twice on WordPress.
	syncMu sync.Mutex
}

func newCollection[T any, PT interface {
	*T
	Item
}](deps Deps, k kind[T], seed []T) *Collection[T, PT] {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Collection[T, PT]{
		deps:   deps,
		kind:   k,
		seed:   seed,
		log:    logger.For(k.name),
		nextID: 1,
	}
}

// Load reads the persisted collection and merges the seed into it. Persisted
// items win; seed items whose id is unknown are appended. Corrupt data is
// treated as absent.
func (c *Collection[T, PT]) Load(ctx context.Context) error {
	var stored []T
	raw, err := c.deps.KV.Get(ctx, c.kind.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load %s: %w", c.kind.name, err)
	default:
		if err := json.Unmarshal(raw, &stored); err != nil {
			c.log.Warn().Err(err).Msg("Corrupt persisted collection, falling back to seed data")
			stored = nil
		}
	}

	merged := make([]T, 0, len(stored)+len(c.seed))
	known := make(map[int]bool, len(stored))
	for i := range stored {
		known[PT(&stored[i]).GetID()] = true
		merged = append(merged, stored[i])
	}
	for i := range c.seed {
		if !known[PT(&c.seed[i]).GetID()] {
			merged = append(merged, c.seed[i])
		}
	}

	maxID := 0
	for _, group := range [][]T{merged, c.seed} {
		for i := range group {
			if id := PT(&group[i]).GetID(); id > maxID {
				maxID = id
			}
		}
	}

	c.mu.Lock()
	c.items = merged
	c.nextID = maxID + 1
	c.mu.Unlock()

	c.log.Info().
		Int("stored", len(stored)).
		Int("total", len(merged)).
		Msg("Collection loaded")
	return nil
}

// List returns a copy of the collection, newest first.
func (c *Collection[T, PT]) List() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// GetByID returns the item with the given local id.
func (c *Collection[T, PT]) GetByID(id int) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Len returns the number of items.
func (c *Collection[T, PT]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// RemoteIDs returns the WordPress ids linked to items of the collection.
func (c *Collection[T, PT]) RemoteIDs() map[int]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make(map[int]bool, len(c.items))
	for i := range c.items {
		if rid := PT(&c.items[i]).RemoteID(); rid != nil {
			ids[*rid] = true
		}
	}
	return ids
}

// LastStatus is the message of the most recent sync attempt.
func (c *Collection[T, PT]) LastStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Add stores item under a fresh local id and, when sync is active, creates
// the matching WordPress post. The returned item carries the remote id if
// the create succeeded.
func (c *Collection[T, PT]) Add(ctx context.Context, item T) (T, error) {
	c.mu.Lock()
	p := PT(&item)
	p.SetID(c.nextID)
	c.nextID++
	p.SetRemoteID(nil)
	p.Touch(c.deps.Now())
	c.items = append([]T{item}, c.items...)
	if err := c.persistLocked(ctx); err != nil {
		c.items = c.items[1:]
		c.mu.Unlock()
		return item, err
	}
	c.mu.Unlock()

	c.log.Info().Int("id", p.GetID()).Msg("Item added")
	return c.syncIfActive(ctx, p.GetID(), item), nil
}

// Update applies patch to the item and mirrors the change. An item that has
// never been synced is created remotely instead.
func (c *Collection[T, PT]) Update(ctx context.Context, id int, patch func(*T)) (T, error) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		var zero T
		return zero, ErrNotFound
	}
	before := c.items[i]
	updated := before
	patch(&updated)
	p := PT(&updated)
	p.SetID(id)
	p.SetRemoteID(PT(&before).RemoteID())
	p.Touch(c.deps.Now())
	c.items[i] = updated
	if err := c.persistLocked(ctx); err != nil {
		c.items[i] = before
		c.mu.Unlock()
		return before, err
	}
	c.mu.Unlock()

	c.log.Info().Int("id", id).Msg("Item updated")
	return c.syncIfActive(ctx, id, updated), nil
}

// Delete removes the item locally and then, if it was synced and sync is
// active, deletes the WordPress post. A failed remote delete does not bring
// the item back.
func (c *Collection[T, PT]) Delete(ctx context.Context, id int) error {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	removed := c.items[i]
	rest := make([]T, 0, len(c.items)-1)
	rest = append(rest, c.items[:i]...)
	rest = append(rest, c.items[i+1:]...)
	prev := c.items
	c.items = rest
	if err := c.persistLocked(ctx); err != nil {
		c.items = prev
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.log.Info().Int("id", id).Msg("Item deleted")

	remoteID := PT(&removed).RemoteID()
	if remoteID == nil || c.deps.Remote == nil || !c.active(ctx) {
		return nil
	}

	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	if err := c.deps.Remote.DeletePost(ctx, *remoteID, true); err != nil {
		c.setStatus(fmt.Sprintf("Deleted locally; WordPress delete of post %d failed: %v", *remoteID, err))
		c.log.Error().Err(err).Int("id", id).Int("wp_id", *remoteID).Msg("Remote delete failed")
		return nil
	}
	c.setStatus(fmt.Sprintf("Deleted WordPress post %d", *remoteID))
	return nil
}

// SyncState returns the persisted switches of this collection.
func (c *Collection[T, PT]) SyncState(ctx context.Context) settings.EntitySync {
	st := c.deps.Settings.Load(ctx)
	return *c.kind.switches(&st)
}

// ToggleSync flips the sync switch. Turning sync off also turns auto-sync
// off.
func (c *Collection[T, PT]) ToggleSync(ctx context.Context) (settings.EntitySync, error) {
	st, err := c.deps.Settings.Update(ctx, func(s *settings.Settings) {
		sw := c.kind.switches(s)
		sw.SyncEnabled = !sw.SyncEnabled
		if !sw.SyncEnabled {
			sw.AutoSyncEnabled = false
		}
	})
	if err != nil {
		return settings.EntitySync{}, err
	}
	return *c.kind.switches(&st), nil
}

// ToggleAutoSync flips the auto-sync switch. Enabling it while sync is off
// returns ErrSyncDisabled and changes nothing.
func (c *Collection[T, PT]) ToggleAutoSync(ctx context.Context) (settings.EntitySync, error) {
	var rejected bool
	st, err := c.deps.Settings.Update(ctx, func(s *settings.Settings) {
		sw := c.kind.switches(s)
		if !sw.AutoSyncEnabled && !sw.SyncEnabled {
			rejected = true
			return
		}
		sw.AutoSyncEnabled = !sw.AutoSyncEnabled
	})
	if err != nil {
		return settings.EntitySync{}, err
	}
	if rejected {
		return *c.kind.switches(&st), ErrSyncDisabled
	}
	return *c.kind.switches(&st), nil
}

// SyncItem pushes one item to WordPress regardless of the auto-sync switch
// and returns the error to the caller.
func (c *Collection[T, PT]) SyncItem(ctx context.Context, id int) (T, error) {
	if c.deps.Remote == nil {
		var zero T
		return zero, ErrNoRemote
	}
	return c.push(ctx, id)
}

// PushUnsynced creates a WordPress post for every item without a remote id.
func (c *Collection[T, PT]) PushUnsynced(ctx context.Context) (PushResult, error) {
	var res PushResult
	if c.deps.Remote == nil {
		return res, ErrNoRemote
	}

	var pending []int
	c.mu.Lock()
	for i := range c.items {
		if PT(&c.items[i]).RemoteID() == nil {
			pending = append(pending, PT(&c.items[i]).GetID())
		}
	}
	c.mu.Unlock()

	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := c.push(ctx, id); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%d: %v", id, err))
			continue
		}
		res.Pushed++
	}
	return res, nil
}

// ApplyRemote merges pulled WordPress posts. For items linked to a post the
// remote version wins; there is no comparison with local edit times.
func (c *Collection[T, PT]) ApplyRemote(ctx context.Context, posts []models.Post) (ApplyResult, error) {
	var res ApplyResult
	if len(posts) == 0 {
		return res, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byRemote := make(map[int]int, len(c.items))
	for i := range c.items {
		if rid := PT(&c.items[i]).RemoteID(); rid != nil {
			byRemote[*rid] = i
		}
	}

	now := c.deps.Now()
	var imported []T
	seen := make(map[int]bool, len(posts))
	for _, post := range posts {
		if seen[post.ID] {
			res.Skipped++
			continue
		}
		seen[post.ID] = true
		if i, ok := byRemote[post.ID]; ok {
			c.kind.applyPost(post, &c.items[i])
			PT(&c.items[i]).Touch(now)
			res.Updated++
			continue
		}
		if c.kind.fromPost == nil {
			res.Skipped++
			continue
		}
		item := c.kind.fromPost(post)
		p := PT(&item)
		p.SetID(c.nextID)
		c.nextID++
		rid := post.ID
		p.SetRemoteID(&rid)
		p.Touch(now)
		imported = append(imported, item)
		res.Imported++
	}
	if len(imported) > 0 {
		c.items = append(imported, c.items...)
	}

	if res.Imported+res.Updated > 0 {
		if err := c.persistLocked(ctx); err != nil {
			return res, err
		}
	}

	c.log.Info().
		Int("imported", res.Imported).
		Int("updated", res.Updated).
		Int("skipped", res.Skipped).
		Msg("Applied remote posts")
	return res, nil
}

func (c *Collection[T, PT]) active(ctx context.Context) bool {
	return c.SyncState(ctx).Active()
}

// syncIfActive pushes the item when sync and auto-sync are both on. Errors
// only end up in the status message.
func (c *Collection[T, PT]) syncIfActive(ctx context.Context, id int, fallback T) T {
	if c.deps.Remote == nil || !c.active(ctx) {
		return fallback
	}
	item, err := c.push(ctx, id)
	if err != nil {
		if cur, ok := c.GetByID(id); ok {
			return cur
		}
		return fallback
	}
	return item
}

// push updates the linked post, or creates one and records its id.
func (c *Collection[T, PT]) push(ctx context.Context, id int) (T, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	item, ok := c.GetByID(id)
	if !ok {
		return item, ErrNotFound
	}
	payload := c.kind.payload(&item)

	if rid := PT(&item).RemoteID(); rid != nil {
		_, err := c.deps.Remote.UpdatePost(ctx, *rid, payload)
		if err == nil {
			c.setStatus(fmt.Sprintf("Updated WordPress post %d", *rid))
			return item, nil
		}
		if !wordpress.IsNotFound(err) {
			c.syncFailed(id, "update", err)
			return item, err
		}
		c.log.Warn().Int("id", id).Int("wp_id", *rid).Msg("Linked post is gone, creating a new one")
	}

	post, err := c.deps.Remote.CreatePost(ctx, payload)
	if err != nil {
		c.syncFailed(id, "create", err)
		return item, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		c.log.Warn().Int("id", id).Int("wp_id", post.ID).Msg("Item deleted while its post was created")
		return item, nil
	}
	rid := post.ID
	PT(&c.items[i]).SetRemoteID(&rid)
	if err := c.persistLocked(ctx); err != nil {
		c.log.Error().Err(err).Int("id", id).Msg("Failed to persist remote id")
	}
	c.status = fmt.Sprintf("Created WordPress post %d", post.ID)
	return c.items[i], nil
}

func (c *Collection[T, PT]) syncFailed(id int, op string, err error) {
	msg := fmt.Sprintf("WordPress %s failed: %v", op, err)
	if wordpress.IsAuthError(err) {
		msg = "WordPress rejected the credentials; please re-enter the application password"
	}
	c.setStatus(msg)
	c.log.Error().Err(err).Int("id", id).Str("op", op).Msg("Sync failed")
}

func (c *Collection[T, PT]) setStatus(s string) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Collection[T, PT]) indexOf(id int) int {
	for i := range c.items {
		if PT(&c.items[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T, PT]) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(c.items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.kind.name, err)
	}
	if err := c.deps.KV.Put(ctx, c.kind.key, raw); err != nil {
		return fmt.Errorf("persist %s: %w", c.kind.name, err)
	}
	return nil
}
