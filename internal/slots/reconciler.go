package slots

import (
	"fmt"
	"sync"
	"time"

	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/monitoring"
)

// Estimator computes when a service will be finished.
type Estimator interface {
	EstimatedFinishDate(identifier string, now time.Time) (time.Time, bool)
}

// Change describes the outcome of one applied event.
type Change struct {
	Changed bool
	// Cleared lists the occupants whose screen went from occupied to empty.
	Cleared []Entry
	Table   Table
}

// Reconciler owns the canonical slot table. Every event is applied under one
// lock, so observers never see a half-applied change.
type Reconciler struct {
	mu      sync.Mutex
	ids     []string
	index   map[string]int
	slots   []*model.SlotRecord
	est     Estimator
	version uint64

	observers    map[int]chan Table
	nextObserver int
}

// New creates a table with one empty slot per screen id. The order of screenIDs fixes the slot index.
func New(screenIDs []string, est Estimator) (*Reconciler, error) {
	if len(screenIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one screen is required", model.ErrValidation)
	}
	index := make(map[string]int, len(screenIDs))
	for i, id := range screenIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: screen %d has an empty id", model.ErrValidation, i)
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate screen id %q", model.ErrValidation, id)
		}
		index[id] = i
	}

	return &Reconciler{
		ids:       append([]string(nil), screenIDs...),
		index:     index,
		slots:     make([]*model.SlotRecord, len(screenIDs)),
		est:       est,
		observers: make(map[int]chan Table),
	}, nil
}

// Len returns the fixed number of slots.
func (r *Reconciler) Len() int {
	return len(r.ids)
}

// ScreenIDs returns the screen identities in slot order.
func (r *Reconciler) ScreenIDs() []string {
	return append([]string(nil), r.ids...)
}

// IndexOf resolves a screen identity to its slot index.
func (r *Reconciler) IndexOf(screenID string) (int, bool) {
	i, ok := r.index[screenID]
	return i, ok
}

// Snapshot returns a copy of the current table.
func (r *Reconciler) Snapshot() Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Apply applies one event. On error the table is left untouched.
func (r *Reconciler) Apply(ev Event) (Change, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.next(ev)
	if err != nil {
		monitoring.TrackSlotEvent(ev.Kind.String(), ev.Source, "rejected")
		return Change{}, err
	}

	var cleared []Entry
	changed := false
	for i := range next {
		if recordsEqual(r.slots[i], next[i]) {
			continue
		}
		changed = true
		if r.slots[i] != nil && next[i] == nil {
			cleared = append(cleared, Entry{ScreenID: r.ids[i], Record: r.slots[i].Clone()})
		}
	}
	if !changed {
		monitoring.TrackSlotEvent(ev.Kind.String(), ev.Source, "noop")
		return Change{Table: r.snapshotLocked()}, nil
	}

	r.slots = next
	r.version++
	table := r.snapshotLocked()
	r.publishLocked(table)

	monitoring.TrackSlotEvent(ev.Kind.String(), ev.Source, "applied")
	monitoring.SetOccupied(table.Occupied())
	return Change{Changed: true, Cleared: cleared, Table: table}, nil
}

// next computes the table that results from ev without touching r.slots.
func (r *Reconciler) next(ev Event) ([]*model.SlotRecord, error) {
	next := append([]*model.SlotRecord(nil), r.slots...)

	switch ev.Kind {
	case KindAssign:
		i, ok := r.index[ev.ScreenID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrData, ev.ScreenID)
		}
		if !ev.Record.Occupied() {
			return nil, fmt.Errorf("%w: customer name is required", model.ErrValidation)
		}
		rec := model.NormalizeRecord(ev.Record)
		rec.EstimatedFinishAt = nil
		if r.est != nil {
			if finish, ok := r.est.EstimatedFinishDate(rec.Service, ev.At); ok {
				rec.EstimatedFinishAt = &finish
			}
		}
		next[i] = rec

	case KindRemove:
		i, ok := r.index[ev.ScreenID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrData, ev.ScreenID)
		}
		next[i] = nil

	case KindBulkReplace:
		next = make([]*model.SlotRecord, len(r.ids))
		for _, e := range ev.Snapshot {
			i, ok := r.index[e.ScreenID]
			if !ok {
				return nil, fmt.Errorf("%w: %q in snapshot", model.ErrData, e.ScreenID)
			}
			next[i] = model.NormalizeRecord(e.Record)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported event kind %d", model.ErrValidation, ev.Kind)
	}
	return next, nil
}

// Subscribe registers an observer. The channel first receives the current
// table and afterwards the newest table after each change; a slow reader
// skips intermediate versions but never misses the latest one.
func (r *Reconciler) Subscribe() (<-chan Table, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextObserver
	r.nextObserver++
	ch := make(chan Table, 1)
	ch <- r.snapshotLocked()
	r.observers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.observers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (r *Reconciler) publishLocked(t Table) {
	for _, ch := range r.observers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- t:
		default:
		}
	}
}

func (r *Reconciler) snapshotLocked() Table {
	t := Table{Version: r.version, Slots: make([]Slot, len(r.ids))}
	for i, id := range r.ids {
		t.Slots[i] = Slot{Index: i, ScreenID: id, Record: r.slots[i].Clone()}
	}
	return t
}

func recordsEqual(a, b *model.SlotRecord) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.CustomerName != b.CustomerName || a.Brand != b.Brand || a.CarType != b.CarType ||
		a.Service != b.Service || a.LicensePlate != b.LicensePlate || a.Year != b.Year ||
		a.Status != b.Status {
		return false
	}
	if a.EstimatedFinishAt == nil || b.EstimatedFinishAt == nil {
		return a.EstimatedFinishAt == nil && b.EstimatedFinishAt == nil
	}
	return a.EstimatedFinishAt.Equal(*b.EstimatedFinishAt)
}
