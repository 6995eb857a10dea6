// Package ledger tracks, per room/faculty/section, which (day, slot) cells
// are occupied. It is the single mutation point for the weekly grid: all
// phases book through Commit, which is atomic across the room+faculty+section
// triple of one session.
package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

type resourceKey struct {
	Kind   models.ResourceKind
	ID     string
	Period models.Period
}

// Ledger is the shared occupancy state for one scheduling run. Reads may be
// served concurrently; Commit and Release serialize behind a single writer
// lock so the triple check-and-set can never interleave.
type Ledger struct {
	days        int
	slotsPerDay int

	mu       sync.RWMutex
	busy     map[resourceKey][]uint64
	bookings map[string]models.Booking
}

// New builds an empty ledger. The busy state for each resource is one uint64
// word per day, so slotsPerDay is capped at 64.
func New(days, slotsPerDay int) (*Ledger, error) {
	if days <= 0 || slotsPerDay <= 0 || slotsPerDay > 64 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "ledger requires 1..64 slots per day and at least one day")
	}
	return &Ledger{
		days:        days,
		slotsPerDay: slotsPerDay,
		busy:        make(map[resourceKey][]uint64),
		bookings:    make(map[string]models.Booking),
	}, nil
}

func rangeMask(r models.SlotRange) uint64 {
	if r.Length <= 0 {
		return 0
	}
	return ((uint64(1) << uint(r.Length)) - 1) << uint(r.Start)
}

// IsFree reports whether the resource has no commitment overlapping the
// range on the given day.
func (l *Ledger) IsFree(kind models.ResourceKind, id string, period models.Period, day models.Day, r models.SlotRange) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isFreeLocked(resourceKey{kind, id, period}, day, r)
}

// IsFreePadded widens the queried range by pad slots on both sides, clipped
// to the day, so callers can enforce break spacing around existing sessions.
func (l *Ledger) IsFreePadded(kind models.ResourceKind, id string, period models.Period, day models.Day, r models.SlotRange, pad int) bool {
	padded := padRange(r, pad, l.slotsPerDay)
	return l.IsFree(kind, id, period, day, padded)
}

func padRange(r models.SlotRange, pad, slotsPerDay int) models.SlotRange {
	start := r.Start - pad
	end := r.End() + pad
	if start < 0 {
		start = 0
	}
	if end > slotsPerDay {
		end = slotsPerDay
	}
	return models.SlotRange{Start: start, Length: end - start}
}

func (l *Ledger) isFreeLocked(k resourceKey, day models.Day, r models.SlotRange) bool {
	if int(day) < 0 || int(day) >= l.days || r.Start < 0 || r.End() > l.slotsPerDay {
		return false
	}
	words, ok := l.busy[k]
	if !ok {
		return true
	}
	return words[day]&rangeMask(r) == 0
}

// Commit books the whole set atomically: if any booking's resource is busy
// in its requested range the entire set is rejected and the ledger is
// unchanged. Bookings must carry unique IDs.
func (l *Ledger) Commit(bookings ...models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// Check first: includes self-overlap within the set, so a request that
	// books the same resource twice in overlapping ranges also fails whole.
	staged := make(map[resourceKey][]uint64, len(bookings))
	for _, b := range bookings {
		k := resourceKey{b.Kind, b.ResourceID, b.Period}
		if !l.isFreeLocked(k, b.Day, b.Slots) {
			return appErrors.Clone(appErrors.ErrPlacementFailed,
				fmt.Sprintf("%s %s busy on %s slots %d-%d", b.Kind, b.ResourceID, b.Day, b.Slots.Start, b.Slots.End()-1))
		}
		words, ok := staged[k]
		if !ok {
			words = make([]uint64, l.days)
			staged[k] = words
		}
		m := rangeMask(b.Slots)
		if words[b.Day]&m != 0 {
			return appErrors.Clone(appErrors.ErrPlacementFailed,
				fmt.Sprintf("%s %s double-claimed within one commit", b.Kind, b.ResourceID))
		}
		words[b.Day] |= m
	}

	for _, b := range bookings {
		k := resourceKey{b.Kind, b.ResourceID, b.Period}
		words, ok := l.busy[k]
		if !ok {
			words = make([]uint64, l.days)
			l.busy[k] = words
		}
		words[b.Day] |= rangeMask(b.Slots)
		l.bookings[b.ID] = b
	}
	return nil
}

// Release withdraws a committed booking. Unknown IDs are a no-op returning
// false.
func (l *Ledger) Release(bookingID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[bookingID]
	if !ok {
		return false
	}
	k := resourceKey{b.Kind, b.ResourceID, b.Period}
	if words, ok := l.busy[k]; ok {
		words[b.Day] &^= rangeMask(b.Slots)
	}
	delete(l.bookings, bookingID)
	return true
}

// Bookings returns every committed booking in a stable order: period, day,
// slot, resource kind, resource id, course code.
func (l *Ledger) Bookings() []models.Booking {
	l.mu.RLock()
	out := make([]models.Booking, 0, len(l.bookings))
	for _, b := range l.bookings {
		out = append(out, b)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Slots.Start != b.Slots.Start {
			return a.Slots.Start < b.Slots.Start
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		return a.CourseCode < b.CourseCode
	})
	return out
}

// Snapshot copies the current occupancy into an independent ledger. Phases
// hand snapshots to concurrent searchers while commits keep flowing through
// the live ledger.
func (l *Ledger) Snapshot() *Ledger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	clone := &Ledger{
		days:        l.days,
		slotsPerDay: l.slotsPerDay,
		busy:        make(map[resourceKey][]uint64, len(l.busy)),
		bookings:    make(map[string]models.Booking, len(l.bookings)),
	}
	for k, words := range l.busy {
		cp := make([]uint64, len(words))
		copy(cp, words)
		clone.busy[k] = cp
	}
	for id, b := range l.bookings {
		clone.bookings[id] = b
	}
	return clone
}

// SlotsPerDay exposes the grid width the ledger was built with.
func (l *Ledger) SlotsPerDay() int { return l.slotsPerDay }

// Days exposes the number of days the ledger tracks.
func (l *Ledger) Days() int { return l.days }
