package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	slotEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_slot_events_total",
			Help: "Slot events applied to the display table",
		},
		[]string{"kind", "source", "result"},
	)

	occupiedSlots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "display_slots_occupied",
			Help: "Number of displays currently showing a customer",
		},
	)

	backendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_backend_calls_total",
			Help: "Calls to the screen system of record",
		},
		[]string{"operation", "status"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_notifications_total",
			Help: "Web push notifications attempted",
		},
		[]string{"status"},
	)

	wsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "display_ws_clients",
			Help: "Connected websocket views",
		},
	)
)

// TrackSlotEvent counts one applied or rejected slot event.
func TrackSlotEvent(kind, source, result string) {
	slotEvents.WithLabelValues(kind, source, result).Inc()
}

// SetOccupied records how many slots are occupied.
func SetOccupied(n int) {
	occupiedSlots.Set(float64(n))
}

// TrackBackendCall counts one call to the system of record.
func TrackBackendCall(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	backendCalls.WithLabelValues(operation, status).Inc()
}

// TrackNotification counts one push attempt.
func TrackNotification(status string) {
	notificationsSent.WithLabelValues(status).Inc()
}

// AddWSClients moves the websocket client gauge by delta.
func AddWSClients(delta int) {
	wsClients.Add(float64(delta))
}
