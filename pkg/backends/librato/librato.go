package librato

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/backends/common"
	"github.com/atlassian/megatron/pkg/format"
)

const (
	// PluginName is the name of this plugin.
	PluginName = "librato"
	// DefaultPort is the default port of the Librato StatsD agent.
	DefaultPort = 8125
)

// Render formats <metric>[#<tags>]:<value>|<type>.
func Render(l common.Line) string {
	metric := l.Metric
	if l.Tags != "" {
		metric += "#" + l.Tags
	}
	return metric + ":" + l.Value + "|" + l.Type
}

// NewFormatter builds the tag aware formatter used by this plugin.
func NewFormatter(cfg common.UDPConfig) *format.Formatter {
	return format.New(format.Options{
		GlobalPrefix:  cfg.Prefix,
		PathSeparator: ".",
		TagSupport:    true,
		GlobalTags:    cfg.Tags,
		TagAssignment: "=",
		TagSeparator:  ",",
	})
}

// NewPlugin creates a Librato plugin.
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

// NewPluginFromViper creates a Librato plugin configured by the "librato" sub tree of v.
func NewPluginFromViper(v *viper.Viper, env common.Env) (megatron.Plugin, error) {
	p, err := NewPlugin(env, common.UDPConfigFromViper(v, PluginName, DefaultPort))
	if err != nil {
		return nil, err
	}
	return p, nil
}
