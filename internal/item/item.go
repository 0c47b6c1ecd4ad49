// Package item defines the playable item value type shared by the queue,
// the engine and the session store.
package item

import (
	"time"

	"github.com/google/uuid"
)

// Locator identifies where an item's audio lives. Exactly one of Path or
// URL is set.
type Locator struct {
	Path string // local file path
	URL  string // remote stream or download URL
}

// IsRemote returns true if the locator points at a remote URL.
func (l Locator) IsRemote() bool {
	return l.URL != ""
}

// Key returns the stable content key for the locator. Keys survive
// restarts, unlike item IDs.
func (l Locator) Key() string {
	if l.URL != "" {
		return l.URL
	}
	return l.Path
}

// Item is a single playable track or episode. Immutable once built;
// identity is the ID, which is regenerated every process run. Use Key()
// when addressing items across restarts.
type Item struct {
	ID       uuid.UUID
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	Source   Locator
}

// Local builds an item backed by a local file.
func Local(path, title, artist, album string, duration time.Duration) Item {
	return Item{
		ID:       uuid.New(),
		Title:    title,
		Artist:   artist,
		Album:    album,
		Duration: duration,
		Source:   Locator{Path: path},
	}
}

// Remote builds an item backed by a remote URL.
func Remote(url, title, artist string, duration time.Duration) Item {
	return Item{
		ID:       uuid.New(),
		Title:    title,
		Artist:   artist,
		Duration: duration,
		Source:   Locator{URL: url},
	}
}

// Key returns the item's stable content key.
func (i Item) Key() string {
	return i.Source.Key()
}

// Same reports whether two items are the same queue entry.
func (i Item) Same(other Item) bool {
	return i.ID == other.ID
}
