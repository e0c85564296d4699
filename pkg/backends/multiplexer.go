package backends

import (
	"fmt"

	"github.com/ash2k/stager/wait"
	"github.com/sirupsen/logrus"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/healthcheck"
	"github.com/atlassian/megatron/pkg/stats"
)

// Multiplexer is an EventListener forwarding every event to a set of plugins.
type Multiplexer struct {
	logger  logrus.FieldLogger
	metrics *stats.ClientMetrics
	plugins []megatron.Plugin
}

// NewMultiplexer creates a Multiplexer.  metrics may be nil.
func NewMultiplexer(logger logrus.FieldLogger, metrics *stats.ClientMetrics, plugins ...megatron.Plugin) *Multiplexer {
	return &Multiplexer{
		logger:  logger,
		metrics: metrics,
		plugins: plugins,
	}
}

func (m *Multiplexer) OnNotifications(notifications []*megatron.Notification) {
	if m.metrics != nil {
		m.metrics.Events.WithLabelValues("notifications").Add(float64(len(notifications)))
	}
	for _, p := range m.plugins {
		p.OnNotifications(notifications)
	}
}

func (m *Multiplexer) OnStatistics(statistics []*megatron.ContextualStatistics) {
	if m.metrics != nil {
		m.metrics.Events.WithLabelValues("statistics").Add(float64(len(statistics)))
	}
	for _, p := range m.plugins {
		p.OnStatistics(statistics)
	}
}

// HealthChecks reports the number of plugins events are fanned out to.
func (m *Multiplexer) HealthChecks() []healthcheck.HealthcheckFunc {
	return []healthcheck.HealthcheckFunc{
		func() (string, healthcheck.HealthyStatus) {
			if len(m.plugins) == 0 {
				return "no plugin enabled", healthcheck.Unhealthy
			}
			return fmt.Sprintf("%d plugins enabled", len(m.plugins)), healthcheck.Healthy
		},
	}
}

// DeepChecks collects the deep checks of every plugin providing some.
func (m *Multiplexer) DeepChecks() []healthcheck.HealthcheckFunc {
	var deepChecks []healthcheck.HealthcheckFunc
	for _, p := range m.plugins {
		_, deepChecks = healthcheck.MaybeAppendHealthChecks(nil, deepChecks, p)
	}
	return deepChecks
}

// Close closes every plugin concurrently and waits for all of them to finish draining.
func (m *Multiplexer) Close() {
	var wg wait.Group
	for _, p := range m.plugins {
		p := p
		wg.Start(func() {
			p.Close()
			m.logger.WithField("plugin", p.Name()).Info("closed plugin")
		})
	}
	wg.Wait()
}
