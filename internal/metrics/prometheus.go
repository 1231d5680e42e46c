package metrics

import (
	"net/http"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exports increments as counter vectors. A vector is created on
// first use with the label keys of that call; later calls with different
// keys are dropped and logged.
type Prometheus struct {
	registry *prometheus.Registry
	logger   *log.Logger

	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	vec  *prometheus.CounterVec
	keys []string
}

// NewPrometheus creates a sink backed by its own registry.
func NewPrometheus(logger *log.Logger) *Prometheus {
	return &Prometheus{
		registry: prometheus.NewRegistry(),
		logger:   logger.WithPrefix("metrics"),
		counters: make(map[string]*counter),
	}
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) Inc(name string, labels Labels, value int) {
	if value <= 0 {
		return
	}
	c, err := p.counter(name, labels)
	if err != nil {
		p.logger.Warn("Dropping metric", "name", name, "error", err)
		return
	}
	m, err := c.vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		p.logger.Warn("Dropping metric", "name", name, "labels", labels, "error", err)
		return
	}
	m.Add(float64(value))
}

func (p *Prometheus) counter(name string, labels Labels) (*counter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.counters[name]; ok {
		return c, nil
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, keys)
	if err := p.registry.Register(vec); err != nil {
		return nil, err
	}
	c := &counter{vec: vec, keys: keys}
	p.counters[name] = c
	return c, nil
}
