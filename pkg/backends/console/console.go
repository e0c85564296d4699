package console

import (
	"bytes"
	"io"
	"os"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/backends/common"
	"github.com/atlassian/megatron/pkg/format"
	"github.com/atlassian/megatron/pkg/statistics"
)

// PluginName is the name of this plugin.
const PluginName = "console"

var jsonConfig = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// Plugin prints a human readable dump of every event.
type Plugin struct {
	logger logrus.FieldLogger

	mu  sync.Mutex
	out io.Writer
}

// NewPlugin creates a plugin writing to out.
func NewPlugin(logger logrus.FieldLogger, out io.Writer) *Plugin {
	logger.WithField("plugin", PluginName).Info("created plugin")
	return &Plugin{
		logger: logger.WithField("plugin", PluginName),
		out:    out,
	}
}

// NewPluginFromViper creates a plugin writing to stdout.
func NewPluginFromViper(v *viper.Viper, env common.Env) (megatron.Plugin, error) {
	return NewPlugin(env.Logger, os.Stdout), nil
}

func (p *Plugin) Name() string {
	return PluginName
}

func (p *Plugin) OnNotifications(notifications []*megatron.Notification) {
	if len(notifications) == 0 {
		return
	}
	var buf bytes.Buffer
	for i, n := range notifications {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString("NOTIFICATION: ")
		buf.WriteString(n.Type)
		buf.WriteByte('\n')
		keys := make([]string, 0, len(n.Attributes))
		for k := range n.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString(" - ")
			buf.WriteString(k)
			buf.WriteByte('=')
			buf.WriteString(n.Attributes[k])
			buf.WriteByte('\n')
		}
		p.writeContext(&buf, n.Context)
	}
	p.print(&buf)
}

func (p *Plugin) OnStatistics(bundles []*megatron.ContextualStatistics) {
	if len(bundles) == 0 {
		return
	}
	var buf bytes.Buffer
	for i, cs := range bundles {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString("STATISTICS:")
		statistics.Reduce(p.logger, cs.Statistics).Each(func(name string, value megatron.Number) {
			buf.WriteString("\n - ")
			buf.WriteString(name)
			buf.WriteByte('=')
			buf.WriteString(format.FormatValue(value))
		})
		buf.WriteByte('\n')
		p.writeContext(&buf, cs.Context)
	}
	p.print(&buf)
}

func (p *Plugin) writeContext(buf *bytes.Buffer, ctx megatron.Context) {
	m := make(map[string]string, ctx.Len())
	ctx.Each(func(k, v string) {
		m[k] = v
	})
	b, err := jsonConfig.Marshal(m)
	if err != nil {
		p.logger.WithError(err).Warn("failed to render context")
		return
	}
	buf.Write(b)
}

func (p *Plugin) print(buf *bytes.Buffer) {
	buf.WriteByte('\n')
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.out.Write(buf.Bytes()); err != nil {
		p.logger.WithError(err).Warn("failed to write")
	}
}

// Close does nothing: every event is written synchronously.
func (p *Plugin) Close() {}
