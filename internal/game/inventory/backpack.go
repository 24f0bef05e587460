package inventory

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfStock is returned when consuming an item the backpack does not hold.
var ErrOutOfStock = errors.New("item not in backpack")

// Stack is one item ID and the quantity held.
type Stack struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Backpack holds item quantities keyed by item ID.
//
// Invariant: every stored quantity is > 0.
// Backpack is not safe for concurrent use.
type Backpack struct {
	counts map[string]int
}

// NewBackpack creates an empty Backpack.
func NewBackpack() *Backpack {
	return &Backpack{counts: make(map[string]int)}
}

// Add places quantity units of itemID into the backpack, capped at the item's
// MaxStack when that is positive. It returns the quantity actually added.
//
// Precondition: quantity > 0.
// Postcondition: on error, backpack state is unchanged.
func (b *Backpack) Add(itemID string, quantity int, reg *Registry) (int, error) {
	def, ok := reg.Item(itemID)
	if !ok {
		return 0, fmt.Errorf("backpack: %w %q", ErrUnknownItem, itemID)
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("backpack: quantity must be > 0")
	}
	have := b.counts[itemID]
	next := have + quantity
	if def.MaxStack > 0 && next > def.MaxStack {
		next = def.MaxStack
	}
	if next > have {
		b.counts[itemID] = next
	}
	return next - have, nil
}

// Set stores quantity for itemID without consulting a registry. A quantity
// <= 0 removes the entry. Used when restoring persisted state.
func (b *Backpack) Set(itemID string, quantity int) {
	if quantity <= 0 {
		delete(b.counts, itemID)
		return
	}
	b.counts[itemID] = quantity
}

// Consume removes one unit of itemID.
//
// Postcondition: on error, backpack state is unchanged.
func (b *Backpack) Consume(itemID string) error {
	n, ok := b.counts[itemID]
	if !ok {
		return fmt.Errorf("backpack: %w: %q", ErrOutOfStock, itemID)
	}
	if n == 1 {
		delete(b.counts, itemID)
	} else {
		b.counts[itemID] = n - 1
	}
	return nil
}

// Quantity returns how many units of itemID are held.
func (b *Backpack) Quantity(itemID string) int {
	return b.counts[itemID]
}

// Items returns a snapshot of all stacks sorted by item ID.
//
// Postcondition: returned slice is a copy; mutations do not affect the backpack.
func (b *Backpack) Items() []Stack {
	out := make([]Stack, 0, len(b.counts))
	for id, n := range b.counts {
		out = append(out, Stack{ItemID: id, Quantity: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Clone returns an independent copy of the backpack.
func (b *Backpack) Clone() *Backpack {
	c := NewBackpack()
	for id, n := range b.counts {
		c.counts[id] = n
	}
	return c
}
