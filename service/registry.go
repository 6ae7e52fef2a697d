package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vedthemaster/lexsy-frontend/config"
	"github.com/vedthemaster/lexsy-frontend/model"
)

type registryKey struct {
	tabID      string
	documentID model.DocumentID
}

type registryEntry struct {
	controller *SessionController
	createdAt  time.Time
	lastUsed   time.Time
}

// SessionRegistry keeps one controller per document per tab, so a session
// handle is never regenerated while the tab lives.
type SessionRegistry struct {
	deps        SessionDeps
	sessions    map[registryKey]*registryEntry
	mu          sync.RWMutex
	maxSessions int           // 0 = unlimited
	idleTTL     time.Duration // 0 = never expire
	now         func() time.Time
}

func NewSessionRegistry(deps SessionDeps, cfg *config.SessionConfig) *SessionRegistry {
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = 0
	}
	idleTTL := time.Duration(cfg.TTLHours) * time.Hour
	if idleTTL < 0 {
		idleTTL = 0
	}
	slog.Info("session registry initialized", "max_sessions", maxSessions, "idle_ttl", idleTTL)
	return &SessionRegistry{
		deps:        deps,
		sessions:    make(map[registryKey]*registryEntry),
		maxSessions: maxSessions,
		idleTTL:     idleTTL,
		now:         time.Now,
	}
}

// GetOrCreate returns the tab's controller for documentID, creating it with
// variant when the tab has not opened the document yet. An existing
// controller keeps the variant it was created with.
func (r *SessionRegistry) GetOrCreate(tabID string, documentID model.DocumentID, variant model.Variant) *SessionController {
	key := registryKey{tabID: tabID, documentID: documentID}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[key]; ok {
		e.lastUsed = now
		return e.controller
	}

	c := NewSessionController(r.deps, tabID, documentID, variant)
	r.sessions[key] = &registryEntry{controller: c, createdAt: now, lastUsed: now}
	r.cleanupIfNeeded(key, now)
	return c
}

// Get returns the controller or nil if the tab never opened the document.
func (r *SessionRegistry) Get(tabID string, documentID model.DocumentID) *SessionController {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[registryKey{tabID: tabID, documentID: documentID}]
	if !ok {
		return nil
	}
	e.lastUsed = r.now()
	return e.controller
}

func (r *SessionRegistry) Delete(tabID string, documentID model.DocumentID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, registryKey{tabID: tabID, documentID: documentID})
}

// cleanupIfNeeded drops controllers idle past the TTL, then the least
// recently used ones above the limit. Controllers that are busy and the
// one just created (keep) are never evicted, so the registry may run over
// its limit while every other controller is busy.
// Must be called with lock held
func (r *SessionRegistry) cleanupIfNeeded(keep registryKey, now time.Time) {
	if r.idleTTL > 0 {
		for k, e := range r.sessions {
			if k == keep || now.Sub(e.lastUsed) < r.idleTTL || e.controller.Busy() {
				continue
			}
			r.evict(k, e, "idle")
		}
	}

	if r.maxSessions <= 0 || len(r.sessions) <= r.maxSessions {
		return
	}

	keys := make([]registryKey, 0, len(r.sessions))
	for k, e := range r.sessions {
		if k == keep || e.controller.Busy() {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return r.sessions[keys[i]].lastUsed.Before(r.sessions[keys[j]].lastUsed)
	})

	removeCount := len(r.sessions) - r.maxSessions
	if removeCount > len(keys) {
		slog.Warn("session limit exceeded by busy sessions", "sessions", len(r.sessions), "max_sessions", r.maxSessions)
		removeCount = len(keys)
	}
	for i := 0; i < removeCount; i++ {
		r.evict(keys[i], r.sessions[keys[i]], "limit")
	}
}

func (r *SessionRegistry) evict(k registryKey, e *registryEntry, reason string) {
	slog.Info("evicting session",
		"reason", reason,
		"tab_id", k.tabID,
		"document_id", k.documentID.String(),
		"created_at", e.createdAt,
		"last_used", e.lastUsed,
	)
	delete(r.sessions, k)
}

// Count returns the number of live controllers.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
