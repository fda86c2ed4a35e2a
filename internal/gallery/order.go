// order.go - In-memory display order of gallery assets.
//
// The asset store has no notion of order, so the gallery keeps its own list
// of public ids and merges it with every store listing.
package gallery

import (
	"fmt"
	"slices"
	"sync"

	"image-gallery/internal/assets"
)

// Order is the display sequence of asset ids. The zero value is an empty
// order ready to use.
type Order struct {
	mu  sync.Mutex
	ids []string
}

// Append adds id at the end unless it is already present.
func (o *Order) Append(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !slices.Contains(o.ids, id) {
		o.ids = append(o.ids, id)
	}
}

// Remove drops id from the order. Unknown ids are ignored.
func (o *Order) Remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := slices.Index(o.ids, id); i >= 0 {
		o.ids = slices.Delete(o.ids, i, i+1)
	}
}

// Move takes the id at from out of the list and reinserts it at to. Both
// positions must be valid indexes of the current list.
func (o *Order) Move(from, to int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := len(o.ids)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d in list of %d", ErrIndex, from, to, n)
	}
	if from == to {
		return nil
	}
	id := o.ids[from]
	o.ids = slices.Delete(o.ids, from, from+1)
	o.ids = slices.Insert(o.ids, to, id)
	return nil
}

// Reconcile orders a store listing. Assets already known come first in
// display order, followed by unknown assets in listing order. Unknown ids are
// recorded at the end of the order so uploads made outside the gallery pick
// up a stable position.
//
// Ids that are no longer listed stay in the order. Only Remove drops them.
func (o *Order) Reconcile(listing []assets.Asset) []assets.Asset {
	byID := make(map[string]assets.Asset, len(listing))
	for _, a := range listing {
		if _, dup := byID[a.PublicID]; !dup {
			byID[a.PublicID] = a
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]assets.Asset, 0, len(byID))
	for _, id := range o.ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
			delete(byID, id)
		}
	}
	for _, a := range listing {
		if _, ok := byID[a.PublicID]; !ok {
			continue
		}
		out = append(out, a)
		o.ids = append(o.ids, a.PublicID)
		delete(byID, a.PublicID)
	}
	return out
}

// IDs returns a copy of the current order.
func (o *Order) IDs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.ids)
}

// Len returns the number of ids in the order, including stale ones.
func (o *Order) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.ids)
}
