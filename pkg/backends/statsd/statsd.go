package statsd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/backends/common"
	"github.com/atlassian/megatron/pkg/format"
)

const (
	// PluginName is the name of this plugin.
	PluginName = "statsd"
	// DefaultPort is the default port of the StatsD daemon.
	DefaultPort = 8125
)

// Render formats <metric>:<value>|<type>.  StatsD has no tags: the context is part of the name.
func Render(l common.Line) string {
	return l.Metric + ":" + l.Value + "|" + l.Type
}

// NewFormatter builds the full path formatter used by this plugin.
func NewFormatter(cfg common.UDPConfig) *format.Formatter {
	return format.New(format.Options{
		GlobalPrefix:  cfg.Prefix,
		PathSeparator: ".",
	})
}

// NewPlugin creates a StatsD plugin.
func NewPlugin(env common.Env, cfg common.UDPConfig) (*common.LinePlugin, error) {
	c, err := common.NewUDPClient(env, PluginName, cfg)
	if err != nil {
		return nil, err
	}
	env.Logger.WithFields(logrus.Fields{
		"plugin":  PluginName,
		"address": cfg.Address(),
		"prefix":  cfg.Prefix,
		"async":   cfg.Async,
	}).Info("created plugin")
	return common.NewLinePlugin(PluginName, env, NewFormatter(cfg), c, Render), nil
}

// NewPluginFromViper creates a StatsD plugin configured by the "statsd" sub tree of v.
func NewPluginFromViper(v *viper.Viper, env common.Env) (megatron.Plugin, error) {
	p, err := NewPlugin(env, common.UDPConfigFromViper(v, PluginName, DefaultPort))
	if err != nil {
		return nil, err
	}
	return p, nil
}
