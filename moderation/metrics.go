package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reactionEventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_reaction_events_processed",
	Help: "Number of reaction-add events folded into tracking state",
})

var punishmentsApplied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_punishments_applied",
	Help: "Number of punishments fired for forbidden combos",
})

var punishmentsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_punishments_suppressed",
	Help: "Number of combo matches suppressed by the cooldown window",
})

var punishmentDeliveryErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_punishment_delivery_errors",
	Help: "Number of timeout applications which failed downstream",
})
