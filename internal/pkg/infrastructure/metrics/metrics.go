package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lightmonitoring"

var (
	ReadingsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_ingested_total",
		Help:      "Number of sensor readings stored.",
	})

	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_created_total",
		Help:      "Number of alerts stored, by type and severity.",
	}, []string{"type", "severity"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_suppressed_total",
		Help:      "Number of alerts not stored because an open alert of the same type was too recent.",
	}, []string{"type"})

	LedControls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "led_controls_total",
		Help:      "Number of LED control entries appended, by control mode.",
	}, []string{"mode"})
)
