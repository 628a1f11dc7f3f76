package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login attempt results.
const (
	LoginSuccess  = "success"
	LoginFailure  = "failure"
	LoginLocked   = "locked"
	LoginRejected = "missing_input"
)

// Checkout hand-off results.
const (
	CheckoutAccepted  = "accepted"
	CheckoutDuplicate = "duplicate"
	CheckoutInvalid   = "invalid"
	CheckoutTokenless = "tokenless"
	CheckoutRejected  = "rejected"
	CheckoutError     = "error"
)

// Metrics holds the storefront collectors. A nil *Metrics records nothing.
type Metrics struct {
	loginAttempts      *prometheus.CounterVec
	accountLockouts    prometheus.Counter
	checkoutHandoffs   *prometheus.CounterVec
	checkoutDuration   prometheus.Histogram
	orderPersistFailed prometheus.Counter
	statusTransitions  *prometheus.CounterVec
}

// New registers the storefront collectors on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on registerer, reusing any already registered.
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		loginAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_login_attempts_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		accountLockouts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_account_lockouts_total",
			Help: "Accounts locked after repeated failed logins",
		}),
		checkoutHandoffs: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_handoffs_total",
			Help: "Checkout hand-offs by result",
		}, []string{"result"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout hand-offs in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		orderPersistFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_order_persist_failures_total",
			Help: "Accepted orders that could not be stored locally",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Order status transitions applied by admins",
		}, []string{"from", "to"}),
	}
}

func (m *Metrics) LoginAttempt(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) AccountLocked() {
	if m == nil {
		return
	}
	m.accountLockouts.Inc()
}

// CheckoutFinished records the outcome and latency of a checkout attempt.
func (m *Metrics) CheckoutFinished(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkoutHandoffs.WithLabelValues(result).Inc()
	m.checkoutDuration.Observe(duration.Seconds())
}

func (m *Metrics) OrderPersistFailed() {
	if m == nil {
		return
	}
	m.orderPersistFailed.Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
