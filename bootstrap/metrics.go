package bootstrap

import "github.com/prometheus/client_golang/prometheus"

const (
	writeCollection = "collection"
	writeCredential = "credential"
	writeIndex      = "index"
)

// Metrics counts the outcomes of bootstrap runs. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	staticDatabases *prometheus.CounterVec
	staticWrites    *prometheus.CounterVec
}

// NewMetrics creates the bootstrap metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		staticDatabases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bootstrap",
			Name:      "databases_total",
			Help:      "Number of logical databases bootstrapped, by result.",
		}, []string{"result"}),
		staticWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bootstrap",
			Name:      "writes_total",
			Help:      "Number of schema writes performed, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.staticDatabases, m.staticWrites)
	return m
}

// addWrites counts n writes of the given kind.
func (m *Metrics) addWrites(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.staticWrites.WithLabelValues(kind).Add(float64(n))
}

// observe counts the outcome of a single database.
func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	result := "ok"
	if !res.OK() {
		result = Kind(res.Err)
	}
	m.staticDatabases.WithLabelValues(result).Inc()
}
