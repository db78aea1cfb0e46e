// Package metrics exposes Prometheus instrumentation for the BMC:
// chassis operation outcomes and raw VBoxManage invocations.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tjst-t/vbox-bmc/internal/vbox"
)

// Metrics holds the BMC's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so instrumentation stays optional in tests.
type Metrics struct {
	registry    *prometheus.Registry
	chassisOps  *prometheus.CounterVec
	invocations *prometheus.CounterVec
}

// New creates a Metrics backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chassisOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vbox_bmc_chassis_operations_total",
			Help: "Chassis operations handled, by operation and completion code.",
		}, []string{"operation", "code"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vbox_bmc_vboxmanage_invocations_total",
			Help: "VBoxManage child-process invocations, by subcommand and outcome.",
		}, []string{"subcommand", "outcome"}),
	}
	m.registry.MustRegister(m.chassisOps, m.invocations)
	return m
}

// ObserveChassisOp records one chassis operation outcome.
func (m *Metrics) ObserveChassisOp(operation string, code uint8) {
	if m == nil {
		return
	}
	m.chassisOps.WithLabelValues(operation, fmt.Sprintf("0x%02x", code)).Inc()
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WrapRunner decorates a vbox.Runner so every invocation is counted.
func (m *Metrics) WrapRunner(r vbox.Runner) vbox.Runner {
	if m == nil {
		return r
	}
	return &countingRunner{next: r, metrics: m}
}

type countingRunner struct {
	next    vbox.Runner
	metrics *Metrics
}

func (c *countingRunner) Run(ctx context.Context, args ...string) (vbox.Result, error) {
	res, err := c.next.Run(ctx, args...)

	subcommand := "unknown"
	if len(args) > 0 {
		subcommand = args[0]
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "launch_error"
	case res.ExitStatus != 0:
		outcome = "nonzero_exit"
	}
	c.metrics.invocations.WithLabelValues(subcommand, outcome).Inc()

	return res, err
}
