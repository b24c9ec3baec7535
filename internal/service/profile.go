package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Strob0t/Boardroom/internal/port/cache"
	"github.com/Strob0t/Boardroom/internal/port/database"
)

// ProfileService serves the prompt-context reads: the decision-maker's
// preference profile and recent decision memory. Both are read once per
// turn, so they sit behind the in-process cache. Failures degrade to empty
// context, never to a failed turn.
type ProfileService struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
	limit int
}

// NewProfileService creates a profile service. cache may be nil to disable
// caching; store may be nil in tests.
func NewProfileService(store database.Store, c cache.Cache, ttl time.Duration, memoryDecisions int) *ProfileService {
	return &ProfileService{store: store, cache: c, ttl: ttl, limit: memoryDecisions}
}

// Profile returns the preference profile for a project, or "" when none is
// stored or the read fails.
func (p *ProfileService) Profile(ctx context.Context, projectID string) string {
	if p.store == nil || projectID == "" {
		return ""
	}
	key := "profile:" + projectID
	if p.cache != nil {
		if data, ok, _ := p.cache.Get(ctx, key); ok {
			return string(data)
		}
	}

	profile, err := p.store.GetPreferenceProfile(ctx, projectID)
	if err != nil {
		if !IsNotFound(err) {
			slog.Warn("preference profile read failed", "project_id", projectID, "error", err)
		}
		return ""
	}
	if p.cache != nil {
		_ = p.cache.Set(ctx, key, []byte(profile), p.ttl)
	}
	return profile
}

// RecentDecisions returns up to the configured number of recent decision
// titles for the project, oldest failure mode being an empty slice.
func (p *ProfileService) RecentDecisions(ctx context.Context, projectID string) []string {
	if p.store == nil || projectID == "" || p.limit <= 0 {
		return nil
	}
	key := "memory:" + projectID
	if p.cache != nil {
		if data, ok, _ := p.cache.Get(ctx, key); ok {
			var titles []string
			if err := json.Unmarshal(data, &titles); err == nil {
				return titles
			}
		}
	}

	titles, err := p.store.RecentDecisionTitles(ctx, projectID, p.limit)
	if err != nil {
		slog.Warn("decision memory read failed", "project_id", projectID, "error", err)
		return nil
	}
	if p.cache != nil {
		if data, err := json.Marshal(titles); err == nil {
			_ = p.cache.Set(ctx, key, data, p.ttl)
		}
	}
	return titles
}

// Invalidate drops cached context for a project after new decisions land.
func (p *ProfileService) Invalidate(ctx context.Context, projectID string) {
	if p.cache == nil || projectID == "" {
		return
	}
	_ = p.cache.Delete(ctx, "profile:"+projectID)
	_ = p.cache.Delete(ctx, "memory:"+projectID)
}
