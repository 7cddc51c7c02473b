package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brigade_events_consumed_total",
		Help: "Events fetched from Kafka, by topic.",
	}, []string{"topic"})

	EventsProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brigade_events_produced_total",
		Help: "Events published to Kafka, by topic.",
	}, []string{"topic"})

	DeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brigade_events_dead_lettered_total",
		Help: "Poison messages written to a DLQ topic, by source topic.",
	}, []string{"topic"})

	Reservations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brigade_dish_reservations_total",
		Help: "Successful multi-line dish balance reservations.",
	})

	Compensations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brigade_dish_compensations_total",
		Help: "Reservations returned to the dish balance after a pre-cooking cancellation.",
	})

	ConsistencyFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brigade_consistency_faults_total",
		Help: "Reservations that failed at commit time despite a passing pre-check.",
	})
)
