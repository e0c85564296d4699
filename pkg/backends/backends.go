package backends

import (
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/backends/common"
	"github.com/atlassian/megatron/pkg/backends/console"
	"github.com/atlassian/megatron/pkg/backends/graphite"
	"github.com/atlassian/megatron/pkg/backends/librato"
	"github.com/atlassian/megatron/pkg/backends/promgateway"
	"github.com/atlassian/megatron/pkg/backends/promstatsd"
	"github.com/atlassian/megatron/pkg/backends/statsd"
)

// Factory creates a plugin from the root configuration.
type Factory func(v *viper.Viper, env common.Env) (megatron.Plugin, error)

// All known plugins.
var plugins = map[string]Factory{
	console.PluginName:     console.NewPluginFromViper,
	graphite.PluginName:    graphite.NewPluginFromViper,
	librato.PluginName:     librato.NewPluginFromViper,
	promgateway.PluginName: promgateway.NewPluginFromViper,
	promstatsd.PluginName:  promstatsd.NewPluginFromViper,
	statsd.PluginName:      statsd.NewPluginFromViper,
}

// Names returns the names of all known plugins, sorted.
func Names() []string {
	names := make([]string, 0, len(plugins))
	for name := range plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPlugin creates an instance of the named plugin, or nil if the name is not known. The error
// return is only used if the named plugin was known but failed to initialize.
func GetPlugin(name string, v *viper.Viper, env common.Env) (megatron.Plugin, error) {
	f, found := plugins[name]
	if !found {
		return nil, nil
	}
	return f(v, env)
}

// InitPlugin creates an instance of the named plugin.
func InitPlugin(name string, v *viper.Viper, env common.Env) (megatron.Plugin, error) {
	plugin, err := GetPlugin(name, v, env)
	if err != nil {
		return nil, fmt.Errorf("could not init plugin %q: %v", name, err)
	}
	if plugin == nil {
		return nil, fmt.Errorf("unknown plugin %q", name)
	}
	env.Logger.Infof("Initialised plugin %q", name)
	return plugin, nil
}

// InitPlugins creates every plugin whose "<name>.enable" setting is true.  If one fails, those
// already created are closed.
func InitPlugins(v *viper.Viper, env common.Env) ([]megatron.Plugin, error) {
	var result []megatron.Plugin
	for _, name := range Names() {
		if !common.IsEnabled(v, name) {
			continue
		}
		plugin, err := InitPlugin(name, v, env)
		if err != nil {
			for _, p := range result {
				p.Close()
			}
			return nil, err
		}
		result = append(result, plugin)
	}
	if len(result) == 0 {
		env.Logger.Warnf("No plugin enabled, events will be discarded. Available plugins: %v", Names())
	}
	return result, nil
}
