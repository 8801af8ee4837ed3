package notifications

import (
	"github.com/docker/go-metrics"
	events "github.com/docker/go-events"

	rcmetrics "github.com/baraverkstad/rcstorage/metrics"
)

// NotificationsNamespace covers the event queue's own pending-count and
// per-action counters.
var NotificationsNamespace = metrics.NewNamespace(rcmetrics.NamespacePrefix, "notifications", nil)

var (
	eventsCounter = NotificationsNamespace.NewLabeledCounter("events", "number of events delivered", "action")
	pendingGauge  = NotificationsNamespace.NewGauge("pending", "number of events queued for delivery", metrics.Total)
)

func init() {
	metrics.Register(NotificationsNamespace)
}

// queueMetricsListener drives pendingGauge and eventsCounter from
// eventQueue's ingress/egress hooks.
type queueMetricsListener struct{}

func (queueMetricsListener) ingress(_ events.Event) {
	pendingGauge.Inc(1)
}

func (queueMetricsListener) egress(event events.Event) {
	pendingGauge.Dec(1)
	if e, ok := event.(Event); ok {
		eventsCounter.WithValues(string(e.Action)).Inc(1)
	}
}
