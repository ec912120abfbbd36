package accessor

import "github.com/prometheus/client_golang/prometheus"

// 取消订阅的触发方式
const (
	triggerDetach      = "detach"
	triggerUnbind      = "unbind"
	triggerContextGone = "context_gone"
)

// Metrics Accessor 的 Prometheus 指标
//
// 多个 Accessor 可以共享同一个 Metrics。nil *Metrics 的方法都是空操作。
type Metrics struct {
	subscribes   prometheus.Counter
	unsubscribes *prometheus.CounterVec
	forwarded    prometheus.Counter
	dropped      prometheus.Counter
	active       prometheus.Gauge
}

// NewMetrics 创建指标并注册到 reg；reg 为 nil 时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		subscribes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accessor",
			Name:      "subscribes_total",
			Help:      "Subscriptions established on attach",
		}),
		unsubscribes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accessor",
			Name:      "unsubscribes_total",
			Help:      "Subscriptions cancelled, by trigger",
		}, []string{"trigger"}),
		forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accessor",
			Name:      "forwarded_total",
			Help:      "Events enqueued on a host execution context",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accessor",
			Name:      "dropped_total",
			Help:      "Events abandoned because the execution context was gone",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "accessor",
			Name:      "active_subscriptions",
			Help:      "Currently live subscriptions",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.subscribes, m.unsubscribes, m.forwarded, m.dropped, m.active)
	}
	return m
}

func (m *Metrics) subscribed() {
	if m == nil {
		return
	}
	m.subscribes.Inc()
	m.active.Inc()
}

func (m *Metrics) unsubscribed(trigger string) {
	if m == nil {
		return
	}
	m.unsubscribes.WithLabelValues(trigger).Inc()
	m.active.Dec()
}

func (m *Metrics) forward() {
	if m != nil {
		m.forwarded.Inc()
	}
}

func (m *Metrics) drop() {
	if m != nil {
		m.dropped.Inc()
	}
}
