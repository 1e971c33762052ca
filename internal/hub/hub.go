package hub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"carshop-display-backend/internal/model"
	"carshop-display-backend/internal/monitoring"
	"carshop-display-backend/internal/slots"
)

// Backend is the system of record for screen assignments.
type Backend interface {
	ListScreens(ctx context.Context) ([]model.ScreenPayload, error)
	AssignScreen(ctx context.Context, screenID string, rec model.SlotRecord, actor string) error
	ClearScreen(ctx context.Context, screenID string, actor string) error
}

// Publisher forwards confirmed changes to other instances and views.
type Publisher interface {
	Publish(ctx context.Context, update model.ScreenUpdate) error
}

// Dispatcher queues a "vehicle ready" notification for a cleared screen.
type Dispatcher interface {
	Dispatch(job ReadyJob)
}

// ReadyJob names the screen that was cleared and who was on it.
type ReadyJob struct {
	ScreenID     string
	ScreenNumber int
	CustomerName string
	LicensePlate string
}

// Actor is the user behind a request.
type Actor struct {
	Name       string
	Authorized bool
}

// Hub applies local actions only after the system of record confirms them,
// and feeds remote events into the reconciler one at a time.
type Hub struct {
	rec        *slots.Reconciler
	est        slots.Estimator
	backend    Backend
	publisher  Publisher
	dispatcher Dispatcher
	now        func() time.Time
}

// Option configures a Hub.
type Option func(*Hub)

// WithPublisher sets where confirmed changes are announced.
func WithPublisher(p Publisher) Option {
	return func(h *Hub) { h.publisher = p }
}

// WithDispatcher sets the notification dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(h *Hub) { h.dispatcher = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// New creates a hub around rec, using est for the finish estimate stored in the backend.
func New(rec *slots.Reconciler, est slots.Estimator, backend Backend, opts ...Option) *Hub {
	h := &Hub{
		rec:     rec,
		est:     est,
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Table returns the current table.
func (h *Hub) Table() slots.Table {
	return h.rec.Snapshot()
}

// Reconciler exposes the underlying table owner for observers.
func (h *Hub) Reconciler() *slots.Reconciler {
	return h.rec
}

// Assign puts rec on a screen once the backend has accepted it.
func (h *Hub) Assign(ctx context.Context, actor Actor, screenID string, rec model.SlotRecord) (slots.Slot, error) {
	if !actor.Authorized {
		return slots.Slot{}, model.ErrUnauthorized
	}
	if _, ok := h.rec.IndexOf(screenID); !ok {
		return slots.Slot{}, fmt.Errorf("%w: %q", model.ErrData, screenID)
	}
	if !rec.Occupied() {
		return slots.Slot{}, fmt.Errorf("%w: customer name is required", model.ErrValidation)
	}

	at := h.now()
	confirmed := *model.NormalizeRecord(&rec)
	confirmed.EstimatedFinishAt = nil
	if finish, ok := h.est.EstimatedFinishDate(confirmed.Service, at); ok {
		confirmed.EstimatedFinishAt = &finish
	}

	err := h.backend.AssignScreen(ctx, screenID, confirmed, actor.Name)
	monitoring.TrackBackendCall("assign", err)
	if err != nil {
		return slots.Slot{}, backendError("assign", screenID, err)
	}

	change, err := h.apply(slots.Assign(screenID, confirmed, at, slots.SourceLocal))
	if err != nil {
		return slots.Slot{}, err
	}
	slot, _ := change.Table.Slot(screenID)
	log.Printf("hub: screen %d assigned to %q by %s", slot.Index+1, confirmed.CustomerName, actor.Name)

	h.publish(ctx, model.ScreenUpdate{ScreenID: screenID, Payload: payloadPtr(screenID, slot.Record), SentAt: at})
	return slot, nil
}

// Remove clears a screen once the backend has accepted it. Clearing an empty screen does nothing.
func (h *Hub) Remove(ctx context.Context, actor Actor, screenID string) (slots.Slot, error) {
	if !actor.Authorized {
		return slots.Slot{}, model.ErrUnauthorized
	}
	current, ok := h.rec.Snapshot().Slot(screenID)
	if !ok {
		return slots.Slot{}, fmt.Errorf("%w: %q", model.ErrData, screenID)
	}
	if current.Record == nil {
		return current, nil
	}

	err := h.backend.ClearScreen(ctx, screenID, actor.Name)
	monitoring.TrackBackendCall("clear", err)
	if err != nil {
		return slots.Slot{}, backendError("clear", screenID, err)
	}

	at := h.now()
	change, err := h.apply(slots.Remove(screenID, at, slots.SourceLocal))
	if err != nil {
		return slots.Slot{}, err
	}
	slot, _ := change.Table.Slot(screenID)
	log.Printf("hub: screen %d cleared by %s", slot.Index+1, actor.Name)

	h.publish(ctx, model.ScreenUpdate{ScreenID: screenID, SentAt: at})
	return slot, nil
}

// Refresh reloads every screen from the backend as one bulk replace.
// When the backend is unreachable the table is kept as it is.
func (h *Hub) Refresh(ctx context.Context) (slots.Table, error) {
	payloads, err := h.backend.ListScreens(ctx)
	monitoring.TrackBackendCall("list", err)
	if err != nil {
		return slots.Table{}, backendError("list", "", err)
	}

	entries := make([]slots.Entry, 0, len(payloads))
	for _, p := range payloads {
		id := p.ScreenID
		if id == "" {
			id = p.ID
		}
		entries = append(entries, slots.Entry{ScreenID: id, Record: p.Record()})
	}

	change, err := h.apply(slots.BulkReplace(entries, h.now(), slots.SourcePoll))
	if err != nil {
		return slots.Table{}, err
	}
	return change.Table, nil
}

// Run consumes inbound events until ctx is done or events is closed.
// A rejected event is logged and skipped.
func (h *Hub) Run(ctx context.Context, events <-chan slots.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := h.apply(ev); err != nil {
				log.Printf("hub: dropped %s event from %s for screen %q: %v", ev.Kind, ev.Source, ev.ScreenID, err)
			}
		}
	}
}

// apply runs one event through the reconciler and queues notifications for screens that emptied.
func (h *Hub) apply(ev slots.Event) (slots.Change, error) {
	change, err := h.rec.Apply(ev)
	if err != nil {
		return change, err
	}
	if h.dispatcher != nil {
		for _, c := range change.Cleared {
			idx, _ := h.rec.IndexOf(c.ScreenID)
			h.dispatcher.Dispatch(ReadyJob{
				ScreenID:     c.ScreenID,
				ScreenNumber: idx + 1,
				CustomerName: c.Record.CustomerName,
				LicensePlate: c.Record.LicensePlate,
			})
		}
	}
	return change, nil
}

func (h *Hub) publish(ctx context.Context, update model.ScreenUpdate) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, update); err != nil {
		log.Printf("hub: failed to publish update for screen %s: %v", update.ScreenID, err)
	}
}

func payloadPtr(screenID string, rec *model.SlotRecord) *model.ScreenPayload {
	if rec == nil {
		return nil
	}
	p := model.PayloadFromRecord(screenID, rec)
	return &p
}

// backendError keeps validation and data errors from the backend as they are
// and marks everything else as a transport failure.
func backendError(op, screenID string, err error) error {
	if errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrData) {
		return err
	}
	if screenID == "" {
		return fmt.Errorf("%w: %s: %v", model.ErrTransport, op, err)
	}
	return fmt.Errorf("%w: %s screen %s: %v", model.ErrTransport, op, screenID, err)
}
