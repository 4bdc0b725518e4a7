package roster

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/quickhitters/clubhouse/models"
	"github.com/quickhitters/clubhouse/notifier"
)

var (
	ErrEmptyName       = errors.New("player name is required")
	ErrAlreadySignedUp = errors.New("player is already signed up for this tee time")
	ErrSlotFull        = errors.New("tee time is full")
)

// Store is the mutable roster collection: one entry per slot key, value is
// the ordered list of player names.
type Store interface {
	Snapshot() (models.RosterSnapshot, error)
	// MutateRoster runs fn against the stored list for key inside a single
	// write transaction and persists fn's result. found reports whether the
	// store held an entry for key at all. An error from fn aborts the write.
	MutateRoster(key string, fn func(players []string, found bool) ([]string, error)) error
	// Watch emits the full roster snapshot after every committed write
	// until ctx is canceled.
	Watch(ctx context.Context) <-chan models.RosterSnapshot
}

// ScheduleSource is the read-only side: the tee sheet loader.
type ScheduleSource interface {
	Refresh(ctx context.Context) error
	Snapshot() []models.TeeSlot
}

// Reconciler owns the merged view of schedule and roster, enforces the
// signup invariants, and produces roster writes.
type Reconciler struct {
	store     Store
	schedule  ScheduleSource
	notifiers []notifier.Notifier

	mu    sync.RWMutex
	slots []models.TeeSlot
}

func New(store Store, schedule ScheduleSource, notifiers []notifier.Notifier) *Reconciler {
	return &Reconciler{
		store:     store,
		schedule:  schedule,
		notifiers: notifiers,
	}
}

// Merge attaches each slot's stored roster to the schedule snapshot. Pure:
// both inputs are left untouched and feed order is preserved. Slots the
// store has never seen keep the legacy player columns the sheet carried.
func Merge(schedule []models.TeeSlot, snapshot models.RosterSnapshot) []models.TeeSlot {
	slots := make([]models.TeeSlot, len(schedule))

	for i, slot := range schedule {
		players, found := snapshot[slot.Key]
		if !found {
			players = slot.Players
		}

		slot.Players = append([]string(nil), players...)
		slots[i] = slot
	}

	return slots
}

// Reload refetches the tee sheet and rebuilds the view model. A feed
// failure keeps the previous view model and is returned to the caller.
func (r *Reconciler) Reload(ctx context.Context) error {
	if err := r.schedule.Refresh(ctx); err != nil {
		return err
	}

	return r.remerge()
}

// Run listens on the store's change feed and re-merges on every emitted
// snapshot. Returns when ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	log.Println("Watching roster store for changes...")

	for snapshot := range r.store.Watch(ctx) {
		r.apply(Merge(r.schedule.Snapshot(), snapshot))
	}

	log.Println("Roster watch stopped")
}

// Slots returns the current merged view model, in feed order.
func (r *Reconciler) Slots() []models.TeeSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.TeeSlot, len(r.slots))
	copy(out, r.slots)
	return out
}

// Slot returns the slot with the given positional id from the current view
// model.
func (r *Reconciler) Slot(slotID int) (models.TeeSlot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, slot := range r.slots {
		if slot.ID == slotID {
			return slot, true
		}
	}

	return models.TeeSlot{}, false
}

// SignUp appends name to the slot's roster. The capacity and duplicate
// checks run inside the store's write transaction against the stored list,
// so two concurrent signups for the last open spot cannot both land. An
// unknown slot id is a silent no-op.
func (r *Reconciler) SignUp(slotID int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	slot, ok := r.Slot(slotID)
	if !ok {
		return nil
	}

	var updated []string
	err := r.store.MutateRoster(slot.Key, func(players []string, found bool) ([]string, error) {
		if !found {
			// First write for this slot: start from the sheet's legacy
			// player columns, not an empty list.
			players = append([]string(nil), slot.Players...)
		}

		for _, p := range players {
			if p == name {
				return nil, ErrAlreadySignedUp
			}
		}

		if len(players) >= models.MaxPlayers {
			return nil, ErrSlotFull
		}

		updated = append(append([]string(nil), players...), name)
		return updated, nil
	})
	if err != nil {
		return err
	}

	if err := r.remerge(); err != nil {
		log.Printf("Error rebuilding view after signup: %v", err)
	}

	slot.Players = updated
	r.notify(notifier.Event{Action: notifier.ActionSignUp, Player: name, Slot: slot})

	return nil
}

// Withdraw removes the first occurrence of name from the slot's roster and
// persists the result. A name that is not on the list is a successful
// no-op, as is an unknown slot id.
func (r *Reconciler) Withdraw(slotID int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	slot, ok := r.Slot(slotID)
	if !ok {
		return nil
	}

	var updated []string
	err := r.store.MutateRoster(slot.Key, func(players []string, found bool) ([]string, error) {
		if !found {
			players = append([]string(nil), slot.Players...)
		}

		updated = removeFirst(players, name)
		return updated, nil
	})
	if err != nil {
		return err
	}

	if err := r.remerge(); err != nil {
		log.Printf("Error rebuilding view after withdrawal: %v", err)
	}

	slot.Players = updated
	r.notify(notifier.Event{Action: notifier.ActionWithdraw, Player: name, Slot: slot})

	return nil
}

func (r *Reconciler) remerge() error {
	snapshot, err := r.store.Snapshot()
	if err != nil {
		return err
	}

	r.apply(Merge(r.schedule.Snapshot(), snapshot))
	return nil
}

func (r *Reconciler) apply(slots []models.TeeSlot) {
	r.mu.Lock()
	r.slots = slots
	r.mu.Unlock()
}

func (r *Reconciler) notify(event notifier.Event) {
	for _, n := range r.notifiers {
		if err := n.Notify(event); err != nil {
			log.Printf("Error sending %s notification for slot %d: %v", n.GetType(), event.Slot.ID, err)
		}
	}
}

func removeFirst(players []string, name string) []string {
	out := make([]string, 0, len(players))
	removed := false

	for _, p := range players {
		if !removed && p == name {
			removed = true
			continue
		}
		out = append(out, p)
	}

	return out
}
