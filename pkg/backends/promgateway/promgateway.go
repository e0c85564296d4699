package promgateway

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/backends/common"
	"github.com/atlassian/megatron/pkg/format"
)

const (
	// PluginName is the name of this plugin.
	PluginName = "prometheus-gateway"
	// DefaultPort is the default port of the Prometheus Pushgateway.
	DefaultPort = 9091
)

// Render formats a Prometheus text exposition sample: <metric>[{<tags>}] <value>.
func Render(l common.Line) string {
	metric := l.Metric
	if l.Tags != "" {
		metric += "{" + l.Tags + "}"
	}
	return metric + " " + l.Value
}

// NewFormatter builds the formatter used by this plugin: levels are joined by '_' and tag values
// are quoted.
func NewFormatter(cfg common.HTTPConfig) *format.Formatter {
	return format.New(format.Options{
		GlobalPrefix:  cfg.Prefix,
		PathSeparator: "_",
		TagSupport:    true,
		GlobalTags:    cfg.Tags,
		TagAssignment: "=",
		TagSeparator:  ",",
		TagValueQuote: `"`,
	})
}

// NewPlugin creates a plugin pushing to a Prometheus Pushgateway.
func NewPlugin(env common.Env, cfg common.HTTPConfig) (*common.LinePlugin, error) {
	c, err := common.NewHTTPClient(env, PluginName, cfg)
	if err != nil {
		return nil, err
	}
	env.Logger.WithFields(logrus.Fields{
		"plugin": PluginName,
		"url":    cfg.URL,
		"prefix": cfg.Prefix,
		"tags":   cfg.Tags,
		"async":  cfg.Async,
	}).Info("created plugin")
	return common.NewLinePlugin(PluginName, env, NewFormatter(cfg), c, Render), nil
}

// NewPluginFromViper creates the plugin configured by the "prometheus-gateway" sub tree of v.
func NewPluginFromViper(v *viper.Viper, env common.Env) (megatron.Plugin, error) {
	cfg, err := common.HTTPConfigFromViper(v, PluginName, DefaultPort)
	if err != nil {
		return nil, err
	}
	p, err := NewPlugin(env, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}
