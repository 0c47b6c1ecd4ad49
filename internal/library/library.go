// Package library indexes playable audio files from configured source
// directories and resolves persisted content keys back to items.
package library

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/llehouerou/undertow/internal/item"
)

// Library is an in-memory index of scanned items, keyed by content key.
type Library struct {
	mu    sync.RWMutex
	items []item.Item
	byKey map[string]item.Item
	log   zerolog.Logger
}

func New(log zerolog.Logger) *Library {
	return &Library{
		byKey: make(map[string]item.Item),
		log:   log,
	}
}

// Items returns all indexed items sorted by artist, album, then title.
func (l *Library) Items() []item.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]item.Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of indexed items.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Resolve maps a content key to its item. Used when restoring persisted
// sessions.
func (l *Library) Resolve(key string) (item.Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.byKey[key]
	return it, ok
}

// Add indexes extra items alongside the scanned ones, e.g. remote
// episodes. An item whose key is already present replaces the old entry.
func (l *Library) Add(items ...item.Item) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, it := range items {
		if _, exists := l.byKey[it.Key()]; !exists {
			l.items = append(l.items, it)
		} else {
			for i := range l.items {
				if l.items[i].Key() == it.Key() {
					l.items[i] = it
					break
				}
			}
		}
		l.byKey[it.Key()] = it
	}
	sortItems(l.items)
}

func (l *Library) replace(items []item.Item) {
	sortItems(items)

	byKey := make(map[string]item.Item, len(items))
	for _, it := range items {
		byKey[it.Key()] = it
	}

	l.mu.Lock()
	l.items = items
	l.byKey = byKey
	l.mu.Unlock()
}

func sortItems(items []item.Item) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Album != b.Album {
			return a.Album < b.Album
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.Source.Path < b.Source.Path
	})
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
	".oga":  true,
}

// IsAudioFile returns true if the path has a supported audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}
