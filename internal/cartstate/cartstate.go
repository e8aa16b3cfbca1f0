// Package cartstate holds the pure cart line transitions shared by the server-side
// cart store and by clients that keep an optimistic local copy of a cart.
package cartstate

import (
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/pricing"
)

var ErrItemNotFound = errors.New("item not found in cart")

// IndexOf returns the position of the line for productID, or -1.
func IndexOf(items []model.CartItem, productID uuid.UUID) int {
	return slices.IndexFunc(items, func(it model.CartItem) bool { return it.ProductID == productID })
}

// AddOne increments the line for item.ProductID by one, or appends item with
// quantity 1. The input slice is not modified.
func AddOne(items []model.CartItem, item model.CartItem) []model.CartItem {
	out := slices.Clone(items)
	if i := IndexOf(out, item.ProductID); i >= 0 {
		out[i].Quantity++
		return out
	}
	item.Quantity = 1
	return append(out, item)
}

// RemoveOne decrements the line for productID by one and drops it at zero.
func RemoveOne(items []model.CartItem, productID uuid.UUID) ([]model.CartItem, error) {
	i := IndexOf(items, productID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	out := slices.Clone(items)
	if out[i].Quantity <= 1 {
		return slices.Delete(out, i, i+1), nil
	}
	out[i].Quantity--
	return out, nil
}

type ActionKind int

const (
	ActionAdd ActionKind = iota + 1
	ActionRemove
)

type Action struct {
	Kind ActionKind
	Item model.CartItem
}

// Tracker keeps the last server-confirmed cart next to a speculative local copy.
// The optimistic copy is never the source of truth: Confirm replaces both with
// the server's answer and Revert discards local changes.
type Tracker struct {
	Confirmed  model.Cart
	Optimistic model.Cart
	Pending    int

	calc *pricing.Calculator
}

func NewTracker(confirmed model.Cart, calc *pricing.Calculator) *Tracker {
	if calc == nil {
		calc = pricing.Default()
	}
	return &Tracker{Confirmed: confirmed, Optimistic: cloneCart(confirmed), calc: calc}
}

// Apply mutates the optimistic copy right away. Removing an absent line is a
// no-op locally; the server decides whether it is an error.
func (t *Tracker) Apply(a Action) {
	switch a.Kind {
	case ActionAdd:
		t.Optimistic.Items = AddOne(t.Optimistic.Items, a.Item)
	case ActionRemove:
		items, err := RemoveOne(t.Optimistic.Items, a.Item.ProductID)
		if err != nil {
			return
		}
		t.Optimistic.Items = items
	default:
		return
	}
	t.calc.Apply(&t.Optimistic)
	t.Pending++
}

// Confirm adopts the authoritative cart returned by the server for one pending action.
func (t *Tracker) Confirm(server model.Cart) {
	t.Confirmed = cloneCart(server)
	if t.Pending > 0 {
		t.Pending--
	}
	if t.Pending == 0 {
		t.Optimistic = cloneCart(server)
	}
}

// Revert rolls the optimistic copy back after a failed server call.
func (t *Tracker) Revert() {
	t.Optimistic = cloneCart(t.Confirmed)
	t.Pending = 0
}

func cloneCart(c model.Cart) model.Cart {
	c.Items = slices.Clone(c.Items)
	return c
}
