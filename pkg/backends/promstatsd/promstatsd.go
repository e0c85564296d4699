package promstatsd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/backends/common"
	"github.com/atlassian/megatron/pkg/format"
)

const (
	// PluginName is the name of this plugin.
	PluginName = "prometheus-statsd"
	// DefaultPort is the default StatsD port of the Prometheus statsd_exporter.
	DefaultPort = 9125
)

// Render formats <metric>:<value>|<type>[|#<tags>], the DogStatsD tag extension understood by the
// statsd_exporter.
func Render(l common.Line) string {
	line := l.Metric + ":" + l.Value + "|" + l.Type
	if l.Tags != "" {
		line += "|#" + l.Tags
	}
	return line
}

// NewFormatter builds the formatter used by this plugin: tags are key:value pairs.
func NewFormatter(cfg common.UDPConfig) *format.Formatter {
	return format.New(format.Options{
		GlobalPrefix:  cfg.Prefix,
		PathSeparator: ".",
		TagSupport:    true,
		GlobalTags:    cfg.Tags,
		TagAssignment: ":",
		TagSeparator:  ",",
	})
}

// NewPlugin creates a plugin feeding a Prometheus statsd_exporter.
func NewPlugin(env common.Env, cfg common.UDPConfig) (*common.LinePlugin, error) {
	c, err := common.NewUDPClient(env, PluginName, cfg)
	if err != nil {
		return nil, err
	}
	env.Logger.WithFields(logrus.Fields{
		"plugin":  PluginName,
		"address": cfg.Address(),
		"prefix":  cfg.Prefix,
		"tags":    cfg.Tags,
		"async":   cfg.Async,
	}).Info("created plugin")
	return common.NewLinePlugin(PluginName, env, NewFormatter(cfg), c, Render), nil
}

// NewPluginFromViper creates the plugin configured by the "prometheus-statsd" sub tree of v.
func NewPluginFromViper(v *viper.Viper, env common.Env) (megatron.Plugin, error) {
	p, err := NewPlugin(env, common.UDPConfigFromViper(v, PluginName, DefaultPort))
	if err != nil {
		return nil, err
	}
	return p, nil
}
