// Package loadout strips a player's weapons while a camera session runs and
// gives the exact same set back afterwards.
package loadout

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ThirdPersonSW2/extension/pkg/core"
	"github.com/ThirdPersonSW2/extension/pkg/host"
)

const instrumentationName = "github.com/ThirdPersonSW2/extension/internal/loadout"

// ErrStaleEntry means the slot's entry was recorded for an earlier
// connection. The entry is dropped and nothing is granted.
var ErrStaleEntry = errors.New("loadout entry belongs to another connection")

type entry struct {
	owner core.PlayerKey
	items []core.LoadoutItem
}

// Ledger remembers stripped loadouts by slot. It is used from the host
// thread only.
type Ledger struct {
	inv     host.Inventory
	entries map[core.Slot]entry

	strips   metric.Int64Counter
	restores metric.Int64Counter
}

// New creates a Ledger over the host inventory.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(inv host.Inventory) (*Ledger, error) {
	l := &Ledger{
		inv:     inv,
		entries: make(map[core.Slot]entry),
	}

	m := otel.Meter(instrumentationName)

	var err error
	l.strips, err = m.Int64Counter(
		"loadout.strips",
		metric.WithDescription("Loadouts stripped at camera activation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating strips counter: %w", err)
	}

	l.restores, err = m.Int64Counter(
		"loadout.restores",
		metric.WithDescription("Loadouts given back at camera deactivation"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restores counter: %w", err)
	}

	return l, nil
}

// Snapshot folds item names into distinct kinds with counts, keeping the
// order in which each kind first appears. Empty names are skipped.
func Snapshot(names []string) []core.LoadoutItem {
	var items []core.LoadoutItem
	index := make(map[string]int, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if i, ok := index[name]; ok {
			items[i].Count++
			continue
		}
		index[name] = len(items)
		items = append(items, core.LoadoutItem{Name: name, Count: 1})
	}
	return items
}

// Strip records p's weapons, removes them and blocks pickups.
// The entry is recorded once the items are gone, so a failure before that
// leaves no entry behind.
func (l *Ledger) Strip(p host.Player) error {
	slot := p.Slot()
	delete(l.entries, slot)

	names, err := l.inv.Weapons(p)
	if err != nil {
		return fmt.Errorf("listing weapons of %s: %w", p.Key(), err)
	}
	items := Snapshot(names)

	if err := l.inv.RemoveItems(p); err != nil {
		return fmt.Errorf("removing items of %s: %w", p.Key(), err)
	}
	l.entries[slot] = entry{owner: p.Key(), items: items}
	l.strips.Add(context.Background(), 1)

	if err := l.inv.SetPreventPickup(p, true); err != nil {
		return fmt.Errorf("blocking pickups of %s: %w", p.Key(), err)
	}
	return nil
}

// Restore gives p back what Strip took and deletes the entry. Without an
// entry it does nothing. When the inventory is unavailable the entry stays
// so a later Restore can still succeed.
func (l *Ledger) Restore(p host.Player) error {
	slot := p.Slot()
	e, ok := l.entries[slot]
	if !ok {
		return nil
	}
	if e.owner != p.Key() {
		delete(l.entries, slot)
		return fmt.Errorf("restoring %s: %w", p.Key(), ErrStaleEntry)
	}

	var errs []error
	if err := l.inv.SetPreventPickup(p, false); err != nil {
		if errors.Is(err, host.ErrUnavailable) {
			return fmt.Errorf("unblocking pickups of %s: %w", p.Key(), err)
		}
		errs = append(errs, fmt.Errorf("unblocking pickups: %w", err))
	}

	for _, item := range e.items {
		for i := 0; i < item.Count; i++ {
			if err := l.inv.GiveItem(p, item.Name); err != nil {
				errs = append(errs, fmt.Errorf("giving %s: %w", item.Name, err))
			}
		}
	}

	delete(l.entries, slot)
	l.restores.Add(context.Background(), 1)

	if len(errs) > 0 {
		return fmt.Errorf("restoring %s: %w", p.Key(), errors.Join(errs...))
	}
	return nil
}

// Release unblocks pickups for p and drops the entry without giving the
// items back. An entry recorded for another connection is dropped with
// ErrStaleEntry. Unlike Restore the entry is gone even when the inventory
// is unavailable.
func (l *Ledger) Release(p host.Player) error {
	slot := p.Slot()
	e, ok := l.entries[slot]
	if !ok {
		return nil
	}
	delete(l.entries, slot)
	if e.owner != p.Key() {
		return fmt.Errorf("releasing %s: %w", p.Key(), ErrStaleEntry)
	}
	if err := l.inv.SetPreventPickup(p, false); err != nil {
		return fmt.Errorf("unblocking pickups of %s: %w", p.Key(), err)
	}
	return nil
}

// Forget drops slot's entry without giving anything back, for players that
// are already gone.
func (l *Ledger) Forget(slot core.Slot) {
	delete(l.entries, slot)
}

// Clear drops every entry.
func (l *Ledger) Clear() {
	clear(l.entries)
}

// Has reports whether slot has a stripped loadout.
func (l *Ledger) Has(slot core.Slot) bool {
	_, ok := l.entries[slot]
	return ok
}

// Items returns a copy of slot's recorded loadout.
func (l *Ledger) Items(slot core.Slot) []core.LoadoutItem {
	return slices.Clone(l.entries[slot].items)
}

// Slots returns the slots holding an entry in ascending order.
func (l *Ledger) Slots() []core.Slot {
	slots := make([]core.Slot, 0, len(l.entries))
	for slot := range l.entries {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	return slots
}

// Len returns the number of stripped loadouts.
func (l *Ledger) Len() int {
	return len(l.entries)
}
