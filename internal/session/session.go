// Package session persists and restores the engine's queue and transport
// state across restarts. Items are addressed by their stable content key,
// not the transient in-memory ID.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/llehouerou/undertow/internal/engine"
	"github.com/llehouerou/undertow/internal/item"
	"github.com/llehouerou/undertow/internal/queue"
)

// ErrRestoreFailed is returned when a persisted session cannot be brought
// back, typically because the current item's key no longer resolves. The
// caller discards the snapshot and starts Idle.
var ErrRestoreFailed = errors.New("session restore failed")

// PersistedSession is the on-disk shape of one engine instance's state.
type PersistedSession struct {
	CurrentKey      string   `json:"currentItemKey"`
	HistoryKeys     []string `json:"historyKeys"`
	UpcomingKeys    []string `json:"upcomingKeys"`
	PositionSeconds float64  `json:"positionSeconds"`
	IsPlaying       bool     `json:"isPlaying"`
	Shuffle         bool     `json:"shuffle"`
	RepeatMode      int      `json:"repeatMode"`
	Volume          float64  `json:"volume"`
}

// Resolver maps a stored content key back to a playable item. Backed by
// the library in production.
type Resolver interface {
	Resolve(key string) (item.Item, bool)
}

// Snapshot captures the engine's state. Pure read; safe to call at any
// time. Returns false when there is nothing worth persisting (no current
// item).
func Snapshot(svc engine.Service) (PersistedSession, bool) {
	cur := svc.CurrentItem()
	if cur == nil {
		return PersistedSession{}, false
	}
	return PersistedSession{
		CurrentKey:      cur.Key(),
		HistoryKeys:     keysOf(svc.History()),
		UpcomingKeys:    keysOf(svc.Upcoming()),
		PositionSeconds: svc.Position().Seconds(),
		IsPlaying:       svc.State() == engine.StatePlaying,
		Shuffle:         svc.Shuffle(),
		RepeatMode:      int(svc.RepeatMode()),
		Volume:          svc.Volume(),
	}, true
}

// Restore resolves a persisted session back into engine state. All or
// nothing on the current item: if its key does not resolve the whole
// restore fails. History and upcoming entries that no longer resolve are
// dropped individually. The restored transport is always Paused at the
// saved position, never Playing.
func Restore(p PersistedSession, resolver Resolver) (engine.RestoredState, error) {
	if p.CurrentKey == "" {
		return engine.RestoredState{}, fmt.Errorf("%w: empty session", ErrRestoreFailed)
	}
	cur, ok := resolver.Resolve(p.CurrentKey)
	if !ok {
		return engine.RestoredState{}, fmt.Errorf("%w: current item %q unresolvable", ErrRestoreFailed, p.CurrentKey)
	}

	return engine.RestoredState{
		History:  resolveAll(p.HistoryKeys, resolver),
		Current:  cur,
		Upcoming: resolveAll(p.UpcomingKeys, resolver),
		Position: time.Duration(p.PositionSeconds * float64(time.Second)),
		Shuffle:  p.Shuffle,
		Repeat:   queue.RepeatMode(p.RepeatMode),
		Volume:   lo.ToPtr(p.Volume),
	}, nil
}

func keysOf(items []item.Item) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key()
	}
	return keys
}

func resolveAll(keys []string, resolver Resolver) []item.Item {
	items := make([]item.Item, 0, len(keys))
	for _, key := range keys {
		if it, ok := resolver.Resolve(key); ok {
			items = append(items, it)
		}
	}
	return items
}
