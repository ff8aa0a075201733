package bus

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts reply buffer traffic. One Metrics is normally shared by every
// buffer in a process.
type Metrics struct {
	enqueued  prometheus.Counter
	delivered prometheus.Counter
	failed    prometheus.Counter
	pending   prometheus.Gauge
}

// DefaultMetrics is registered with the default Prometheus registry and used by
// buffers that have no Metrics of their own.
var DefaultMetrics = MustNewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates the reply buffer collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Subsystem: "reply_buffer",
			Name:      "enqueued_total",
			Help:      "Payloads put into reply buffers.",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Subsystem: "reply_buffer",
			Name:      "delivered_total",
			Help:      "Payloads removed and returned as replies.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Subsystem: "reply_buffer",
			Name:      "conversion_failed_total",
			Help:      "Payloads removed and dropped because they could not become replies.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatcore",
			Subsystem: "reply_buffer",
			Name:      "pending",
			Help:      "Payloads waiting in reply buffers.",
		}),
	}

	if reg != nil {
		for _, collector := range []prometheus.Collector{m.enqueued, m.delivered, m.failed, m.pending} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// MustNewMetrics is like NewMetrics but panics if registration fails.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}

	return m
}

func (m *Metrics) observePut() {
	if m == nil {
		return
	}
	m.enqueued.Inc()
	m.pending.Inc()
}

func (m *Metrics) observePop() {
	if m == nil {
		return
	}
	m.pending.Dec()
}

func (m *Metrics) observeDelivery(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failed.Inc()
		return
	}
	m.delivered.Inc()
}
