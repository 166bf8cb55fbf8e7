package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/keyrelay/core/relay"
)

const namespace = "keyrelay"

// Collector records relay lifecycle metrics. It implements relay.Observer.
type Collector struct {
	relaysOpened      prometheus.Counter
	relaysActive      prometheus.Gauge
	relaysFinished    *prometheus.CounterVec
	messagesPublished prometheus.Counter
	messagesRejected  *prometheus.CounterVec
	delivered         prometheus.Histogram
}

var _ relay.Observer = (*Collector)(nil)

// NewCollector creates an unregistered collector.
func NewCollector() *Collector {
	return &Collector{
		relaysOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relays_opened_total",
			Help:      "Total number of relays created.",
		}),
		relaysActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relays_active",
			Help:      "Current number of open relays.",
		}),
		relaysFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relays_finished_total",
			Help:      "Total number of relays that terminated, by reason.",
		}, []string{"reason"}), // "completed" or "closed"
		messagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Total number of messages accepted by relays.",
		}),
		messagesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_rejected_total",
			Help:      "Total number of publishes that failed, by cause.",
		}, []string{"cause"}),
		delivered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_messages",
			Help:      "Number of messages a relay accepted before it terminated.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// Register registers every metric with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{
		c.relaysOpened,
		c.relaysActive,
		c.relaysFinished,
		c.messagesPublished,
		c.messagesRejected,
		c.delivered,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// RelayOpened implements relay.Observer.
func (c *Collector) RelayOpened(string, int) {
	c.relaysOpened.Inc()
	c.relaysActive.Inc()
}

// MessagePublished implements relay.Observer.
func (c *Collector) MessagePublished(string) {
	c.messagesPublished.Inc()
}

// MessageRejected implements relay.Observer.
func (c *Collector) MessageRejected(_ string, err error) {
	c.messagesRejected.WithLabelValues(rejectCause(err)).Inc()
}

// RelayFinished implements relay.Observer.
func (c *Collector) RelayFinished(_ string, reason relay.Reason, delivered int) {
	c.relaysActive.Dec()
	c.relaysFinished.WithLabelValues(reason.String()).Inc()
	c.delivered.Observe(float64(delivered))
}

func rejectCause(err error) string {
	switch {
	case errors.Is(err, relay.ErrUnknownKey):
		return "unknown_key"
	case errors.Is(err, relay.ErrBufferFull):
		return "buffer_full"
	default:
		return "other"
	}
}
