package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shepherd",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Rows processed by contact imports, by outcome.",
	}, []string{"outcome"})

	importResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shepherd",
		Subsystem: "import",
		Name:      "resolutions_total",
		Help:      "Duplicate entries resolved during import review, by action.",
	}, []string{"action"})

	contactEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shepherd",
		Subsystem: "contacts",
		Name:      "events_total",
		Help:      "Contact lifecycle events, by event and source.",
	}, []string{"event", "source"})

	activeSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shepherd",
		Subsystem: "import",
		Name:      "active_sessions",
		Help:      "Review sessions currently held in memory, by kind.",
	}, []string{"kind"})
)

const (
	OutcomeImported  = "imported"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
)

// ObserveImport records the outcome counts of one executed import.
func ObserveImport(imported, skipped, duplicates int) {
	importRows.WithLabelValues(OutcomeImported).Add(float64(imported))
	importRows.WithLabelValues(OutcomeSkipped).Add(float64(skipped))
	importRows.WithLabelValues(OutcomeDuplicate).Add(float64(duplicates))
}

func ObserveResolution(action string, n int) {
	if n <= 0 {
		return
	}
	importResolutions.WithLabelValues(action).Add(float64(n))
}

func ObserveContactEvent(event, source string) {
	contactEvents.WithLabelValues(event, source).Inc()
}

func SetActiveSessions(kind string, n int) {
	activeSessions.WithLabelValues(kind).Set(float64(n))
}
