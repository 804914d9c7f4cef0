// Package metrics holds the process-wide Prometheus collectors.
// Label values are bounded (reducer names, outcomes, reasons); never
// label by identity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reducerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "world_reducer_calls_total",
		Help: "Handler invocations by reducer and outcome",
	}, []string{"reducer", "outcome"}) // outcome: "applied", "declined", "error"

	reducerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "world_reducer_duration_seconds",
		Help:    "Time spent inside a handler transaction",
		Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	}, []string{"reducer"})

	players = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_players",
		Help: "Current number of player rows",
	})

	cells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_split_cells",
		Help: "Current number of split cell rows",
	})

	food = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_food_pellets",
		Help: "Current number of food pellets",
	})

	ejected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_ejected_mass",
		Help: "Current number of ejected mass pellets",
	})

	journalTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journal_events_total",
		Help: "Events accepted by the journal",
	})

	journalDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journal_events_dropped_total",
		Help: "Events dropped by rate limiting or a full buffer",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections or requests rejected",
	}, []string{"reason"}) // "rate_limit", "origin", "ws_total_limit", "ws_ip_limit", "command_rate"

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "status"})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "WebSocket frames by direction",
	}, []string{"direction"}) // "in", "out"
)

// RecordReducer counts one handler call.
func RecordReducer(reducer string, applied bool, duration time.Duration) {
	outcome := "declined"
	if applied {
		outcome = "applied"
	}
	reducerCalls.WithLabelValues(reducer, outcome).Inc()
	reducerDuration.WithLabelValues(reducer).Observe(duration.Seconds())
}

// RecordReducerError counts a request that could not be dispatched.
func RecordReducerError(reducer string) {
	reducerCalls.WithLabelValues(reducer, "error").Inc()
}

// UpdateWorld sets the entity gauges.
func UpdateWorld(playerCount, cellCount, foodCount, ejectedCount int) {
	players.Set(float64(playerCount))
	cells.Set(float64(cellCount))
	food.Set(float64(foodCount))
	ejected.Set(float64(ejectedCount))
}

// RecordJournal counts an accepted or dropped journal event.
func RecordJournal(accepted bool) {
	if accepted {
		journalTotal.Inc()
		return
	}
	journalDropped.Inc()
}

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest counts an HTTP response.
func RecordRequest(method string, status int) {
	requestTotal.WithLabelValues(method, http.StatusText(status)).Inc()
}

// UpdateWSConnections sets the live connection gauge.
func UpdateWSConnections(count int) {
	wsConnections.Set(float64(count))
}

// RecordWSMessage counts one frame; direction is "in" or "out".
func RecordWSMessage(direction string) {
	wsMessages.WithLabelValues(direction).Inc()
}
