package queue

import (
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/llehouerou/undertow/internal/item"
)

// The upcoming list is always re-derived from the baseline minus the items
// already played, never by shuffling the live upcoming list. That way no
// item repeats before the whole baseline has been heard, and the ordering
// survives skips and manual reorders without drift.

// playedSet collects the IDs of history plus the current item.
func playedSet(history []item.Item, current *item.Item) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(history)+1)
	for _, it := range history {
		set[it.ID] = struct{}{}
	}
	if current != nil {
		set[current.ID] = struct{}{}
	}
	return set
}

// shufflePool returns a random permutation of the baseline items not in
// played.
func shufflePool(baseline []item.Item, played map[uuid.UUID]struct{}, rnd *rand.Rand) []item.Item {
	pool := lo.Filter(baseline, func(it item.Item, _ int) bool {
		_, ok := played[it.ID]
		return !ok
	})
	rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}

// orderedRemainder returns the baseline suffix after the current item's
// baseline position, excluding played items. If the current item is not in
// the baseline it falls back to all unplayed baseline items.
func orderedRemainder(baseline []item.Item, current *item.Item, played map[uuid.UUID]struct{}) []item.Item {
	start := 0
	if current != nil {
		if _, idx, found := lo.FindIndexOf(baseline, func(it item.Item) bool {
			return it.ID == current.ID
		}); found {
			start = idx + 1
		}
	}
	return lo.Filter(baseline[start:], func(it item.Item, _ int) bool {
		_, ok := played[it.ID]
		return !ok
	})
}
