package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reactionEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "alertium_reaction_events_received",
	Help: "Number of reaction gateway events received",
}, []string{"type"})

var reactionEventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "alertium_reaction_events_failed",
	Help: "Number of reaction gateway events which failed processing",
}, []string{"type"})
