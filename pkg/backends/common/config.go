package common

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/spf13/viper"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/util"
)

const (
	ParamEnable    = "enable"
	ParamServer    = "server"
	ParamPort      = "port"
	ParamURL       = "url"
	ParamPrefix    = "prefix"
	ParamQueueSize = "queue-size"
	ParamAsync     = "async"
	ParamTags      = "tags"
	ParamTransport = "transport"
)

const (
	// DefaultServer is the default host of UDP and HTTP plugins.
	DefaultServer = "localhost"
	// DefaultAsync makes plugins use a NonBlocking client unless configured otherwise.
	DefaultAsync = true
	// PushGatewayPath is the path lines are pushed to when no url is configured.
	PushGatewayPath = "/metrics/job/megatron"
)

// ClientConfig holds the settings shared by every plugin owning a client.
type ClientConfig struct {
	Prefix    string
	QueueSize int
	Async     bool
	Tags      []string
}

// UDPConfig configures a plugin sending datagrams.
type UDPConfig struct {
	ClientConfig
	Server string
	Port   int
}

// Address returns the destination as host:port.
func (c UDPConfig) Address() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}

// Validate checks the destination.
func (c UDPConfig) Validate(name string) error {
	if c.Server == "" {
		return fmt.Errorf("[%s] %s is required", name, ParamServer)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("[%s] %s must be between 1 and 65535, got %d", name, ParamPort, c.Port)
	}
	return nil
}

// HTTPConfig configures a plugin posting batches.
type HTTPConfig struct {
	ClientConfig
	URL string
	// Transport names the transport.<name> configuration of the http.Client.
	Transport string
	Retry     util.RetryOptions
}

// Validate checks the destination.
func (c HTTPConfig) Validate(name string) error {
	if c.URL == "" {
		return fmt.Errorf("[%s] %s is required", name, ParamURL)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("[%s] invalid %s: %v", name, ParamURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("[%s] %s must be an http or https URL, got %q", name, ParamURL, c.URL)
	}
	return nil
}

// IsEnabled reports whether the plugin configured under name is enabled.
func IsEnabled(v *viper.Viper, name string) bool {
	return util.GetSubViper(v, name).GetBool(ParamEnable)
}

func clientConfigFromViper(v *viper.Viper, sub *viper.Viper) ClientConfig {
	sub.SetDefault(ParamPrefix, megatron.DefaultPrefix)
	sub.SetDefault(ParamQueueSize, 0)
	sub.SetDefault(ParamAsync, DefaultAsync)
	sub.SetDefault(ParamTags, []string{})
	tags := util.GetStringSlice(sub, ParamTags)
	tags = append(tags, util.GetStringSlice(v, megatron.ParamDefaultTags)...)
	return ClientConfig{
		Prefix:    sub.GetString(ParamPrefix),
		QueueSize: sub.GetInt(ParamQueueSize),
		Async:     sub.GetBool(ParamAsync),
		Tags:      tags,
	}
}

// UDPConfigFromViper reads the configuration of the plugin name from its sub tree of v.
func UDPConfigFromViper(v *viper.Viper, name string, defaultPort int) UDPConfig {
	sub := util.GetSubViper(v, name)
	sub.SetDefault(ParamServer, DefaultServer)
	sub.SetDefault(ParamPort, defaultPort)
	return UDPConfig{
		ClientConfig: clientConfigFromViper(v, sub),
		Server:       sub.GetString(ParamServer),
		Port:         sub.GetInt(ParamPort),
	}
}

// HTTPConfigFromViper reads the configuration of the plugin name from its sub tree of v.  Without
// a url, lines are pushed to PushGatewayPath on server:port.
func HTTPConfigFromViper(v *viper.Viper, name string, defaultPort int) (HTTPConfig, error) {
	sub := util.GetSubViper(v, name)
	sub.SetDefault(ParamServer, DefaultServer)
	sub.SetDefault(ParamPort, defaultPort)
	sub.SetDefault(ParamURL, "")
	sub.SetDefault(ParamTransport, "")

	retry, err := util.GetRetryOptionsFromViper(sub)
	if err != nil {
		return HTTPConfig{}, fmt.Errorf("[%s] %v", name, err)
	}
	target := sub.GetString(ParamURL)
	if target == "" {
		target = "http://" + net.JoinHostPort(sub.GetString(ParamServer), strconv.Itoa(sub.GetInt(ParamPort))) + PushGatewayPath
	}
	return HTTPConfig{
		ClientConfig: clientConfigFromViper(v, sub),
		URL:          target,
		Transport:    sub.GetString(ParamTransport),
		Retry:        retry,
	}, nil
}
