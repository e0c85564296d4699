package common

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tilinna/clock"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/client"
	"github.com/atlassian/megatron/pkg/format"
	"github.com/atlassian/megatron/pkg/healthcheck"
	"github.com/atlassian/megatron/pkg/statistics"
)

const (
	// KindEvents prefixes the metrics built from notifications.
	KindEvents = "events"
	// KindStatistics prefixes the metrics built from statistics.
	KindStatistics = "statistics"

	// TypeCounter marks a line as a counter increment.
	TypeCounter = "c"
	// TypeGauge marks a line as a gauge value.
	TypeGauge = "g"
)

// Line is one metric ready to be rendered in a wire format.
type Line struct {
	Metric string
	Tags   string // "" if there are none
	Value  string
	Type   string // TypeCounter or TypeGauge
	Time   time.Time
}

// LineFormat renders a Line in the grammar of a monitoring system.
type LineFormat func(l Line) string

// LinePlugin turns events into lines and ships them through a client.  Every notification becomes
// a counter increment under KindEvents, every reduced statistic a gauge under KindStatistics.
type LinePlugin struct {
	name      string
	logger    logrus.FieldLogger
	formatter *format.Formatter
	client    megatron.Client
	clock     clock.Clock
	render    LineFormat
}

// NewLinePlugin creates a plugin that owns c.
func NewLinePlugin(name string, env Env, formatter *format.Formatter, c megatron.Client, render LineFormat) *LinePlugin {
	return &LinePlugin{
		name:      name,
		logger:    env.Logger.WithField("plugin", name),
		formatter: formatter,
		client:    c,
		clock:     env.clock(),
		render:    render,
	}
}

func (p *LinePlugin) Name() string {
	return p.name
}

func (p *LinePlugin) OnNotifications(notifications []*megatron.Notification) {
	if len(notifications) == 0 {
		return
	}
	now := p.clock.Now()
	one := p.formatter.FormatValue(1)
	lines := make([]string, 0, len(notifications))
	for _, n := range notifications {
		lines = append(lines, p.render(Line{
			Metric: p.formatter.FormatMetricName(KindEvents, n.Context, n.Type),
			Tags:   p.formatter.FormatTags(n.Context),
			Value:  one,
			Type:   TypeCounter,
			Time:   now,
		}))
	}
	p.logger.WithField("notifications", len(notifications)).Debug("onNotifications")
	p.client.Send(lines)
}

func (p *LinePlugin) OnStatistics(bundles []*megatron.ContextualStatistics) {
	now := p.clock.Now()
	var lines []string
	for _, cs := range bundles {
		if cs == nil {
			continue
		}
		reduced := statistics.Reduce(p.logger, cs.Statistics)
		tags := p.formatter.FormatTags(cs.Context)
		reduced.Each(func(name string, value megatron.Number) {
			lines = append(lines, p.render(Line{
				Metric: p.formatter.FormatMetricName(KindStatistics, cs.Context, name),
				Tags:   tags,
				Value:  p.formatter.FormatValue(value),
				Type:   TypeGauge,
				Time:   now,
			}))
		})
	}
	p.logger.WithField("lines", len(lines)).Debug("onStatistics")
	if len(lines) > 0 {
		p.client.Send(lines)
	}
}

// Close closes the client, delivering what it still holds.
func (p *LinePlugin) Close() {
	p.client.Close()
}

// DeepChecks reports the plugin unhealthy once its client stops accepting lines.
func (p *LinePlugin) DeepChecks() []healthcheck.HealthcheckFunc {
	sc, ok := p.client.(interface{ State() client.State })
	if !ok {
		return nil
	}
	return []healthcheck.HealthcheckFunc{
		func() (string, healthcheck.HealthyStatus) {
			state := sc.State()
			return fmt.Sprintf("%s client %s", p.name, state), healthcheck.StatusOf(state == client.StateOpen)
		},
	}
}
