package status

import (
	"context"
	"slices"
	"sort"
)

// Catalog is an immutable, ordered view over the configured statuses.
// Statuses are kept in OrderIndex order; statuses sharing an OrderIndex keep
// the order they were loaded in.
type Catalog struct {
	statuses      []*Status
	byID          map[string]*Status
	holdID        string
	hasCommentsID string
}

type CatalogOption func(*Catalog)

// WithHoldStatus designates the status that may move to any active status.
func WithHoldStatus(id string) CatalogOption {
	return func(c *Catalog) { c.holdID = id }
}

// WithHasCommentsStatus designates the status that dominates parent inheritance.
func WithHasCommentsStatus(id string) CatalogOption {
	return func(c *Catalog) { c.hasCommentsID = id }
}

func NewCatalog(statuses []*Status, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		statuses:      slices.Clone(statuses),
		byID:          make(map[string]*Status, len(statuses)),
		holdID:        IDOnHold,
		hasCommentsID: IDHasComments,
	}
	for _, opt := range opts {
		opt(c)
	}
	sort.SliceStable(c.statuses, func(i, j int) bool {
		return c.statuses[i].OrderIndex < c.statuses[j].OrderIndex
	})
	for _, s := range c.statuses {
		if _, dup := c.byID[s.ID]; !dup {
			c.byID[s.ID] = s
		}
	}
	return c
}

// LoadCatalog reads every status from repo and builds a Catalog.
func LoadCatalog(ctx context.Context, repo Repository, opts ...CatalogOption) (*Catalog, error) {
	statuses, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(statuses, opts...), nil
}

func (c *Catalog) Statuses() []*Status {
	return slices.Clone(c.statuses)
}

func (c *Catalog) Find(id string) (*Status, bool) {
	s, ok := c.byID[id]
	return s, ok
}

func (c *Catalog) HoldID() string {
	return c.holdID
}

func (c *Catalog) HasCommentsID() string {
	return c.hasCommentsID
}

// Default returns the status flagged IsDefault, or the earliest status when
// none is flagged.
func (c *Catalog) Default() (*Status, bool) {
	for _, s := range c.statuses {
		if s.IsDefault {
			return s, true
		}
	}
	if len(c.statuses) == 0 {
		return nil, false
	}
	return c.statuses[0], true
}

// IsFinished reports whether id resolves to a terminal status. Unknown ids are
// not finished.
func (c *Catalog) IsFinished(id string) bool {
	s, ok := c.byID[id]
	return ok && s.IsFinished
}

// Position is the index of id in catalog order, or -1.
func (c *Catalog) Position(id string) int {
	for i, s := range c.statuses {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// AllowedNextStatuses lists the statuses a task in statusID may move to.
//
//   - hold: every non-finished status except hold itself
//   - no AllowedNextStatuses configured: every non-finished status except itself
//   - otherwise: exactly the configured statuses, in catalog order
//
// An unknown statusID yields nothing.
func (c *Catalog) AllowedNextStatuses(statusID string) []*Status {
	current, ok := c.byID[statusID]
	if !ok {
		return nil
	}
	if statusID == c.holdID || len(current.AllowedNextStatuses) == 0 {
		var out []*Status
		for _, s := range c.statuses {
			if s.IsFinished || s.ID == statusID {
				continue
			}
			out = append(out, s)
		}
		return out
	}
	var out []*Status
	for _, s := range c.statuses {
		if slices.Contains(current.AllowedNextStatuses, s.ID) {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) CanTransition(from, to string) bool {
	for _, s := range c.AllowedNextStatuses(from) {
		if s.ID == to {
			return true
		}
	}
	return false
}
