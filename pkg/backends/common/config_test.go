package common

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/internal/fixtures"
	"github.com/atlassian/megatron/pkg/util"
)

func readConfig(t *testing.T, toml string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(toml)))
	return v
}

func TestUDPConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := UDPConfigFromViper(viper.New(), "statsd", 8125)
	assert.Equal(t, UDPConfig{
		ClientConfig: ClientConfig{
			Prefix: megatron.DefaultPrefix,
			Async:  true,
		},
		Server: DefaultServer,
		Port:   8125,
	}, cfg)
	assert.Equal(t, "localhost:8125", cfg.Address())
	assert.NoError(t, cfg.Validate("statsd"))
}

func TestUDPConfigFromFile(t *testing.T) {
	t.Parallel()
	v := readConfig(t, `
default-tags = ["env=test"]

[graphite]
enable = true
server = "graphite.local"
port = 2004
prefix = "cluster1"
queue-size = 10
async = false
tags = ["dc=eu", "rack=r1"]
`)
	cfg := UDPConfigFromViper(v, "graphite", 2003)
	assert.Equal(t, UDPConfig{
		ClientConfig: ClientConfig{
			Prefix:    "cluster1",
			QueueSize: 10,
			Async:     false,
			Tags:      []string{"dc=eu", "rack=r1", "env=test"},
		},
		Server: "graphite.local",
		Port:   2004,
	}, cfg)
	assert.True(t, IsEnabled(v, "graphite"))
	assert.False(t, IsEnabled(v, "statsd"))
}

func TestUDPConfigValidate(t *testing.T) {
	t.Parallel()
	assert.Error(t, UDPConfig{Port: 1}.Validate("x"))
	assert.Error(t, UDPConfig{Server: "h"}.Validate("x"))
	assert.Error(t, UDPConfig{Server: "h", Port: 70000}.Validate("x"))
	err := UDPConfig{Server: "h", Port: -1}.Validate("librato")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[librato]")
}

func TestHTTPConfigDefaultURL(t *testing.T) {
	t.Parallel()
	cfg, err := HTTPConfigFromViper(viper.New(), "prometheus-gateway", 9091)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9091/metrics/job/megatron", cfg.URL)
	assert.Equal(t, util.PolicyDisabled, cfg.Retry.Policy)
	assert.NoError(t, cfg.Validate("prometheus-gateway"))
}

func TestHTTPConfigFromFile(t *testing.T) {
	t.Parallel()
	v := readConfig(t, `
[prometheus-gateway]
url = "https://push.example.com/metrics/job/x"
transport = "push"
retry-policy = "constant"
retry-interval = "2s"
`)
	cfg, err := HTTPConfigFromViper(v, "prometheus-gateway", 9091)
	require.NoError(t, err)
	assert.Equal(t, "https://push.example.com/metrics/job/x", cfg.URL)
	assert.Equal(t, "push", cfg.Transport)
	assert.Equal(t, util.PolicyConstant, cfg.Retry.Policy)
	assert.Equal(t, 2*time.Second, cfg.Retry.Interval)
}

func TestHTTPConfigValidate(t *testing.T) {
	t.Parallel()
	assert.Error(t, HTTPConfig{}.Validate("x"))
	assert.Error(t, HTTPConfig{URL: "ftp://a/b"}.Validate("x"))
	assert.Error(t, HTTPConfig{URL: "http://a b/"}.Validate("x"))
	assert.NoError(t, HTTPConfig{URL: "http://a/b"}.Validate("x"))
}

func TestNewHTTPClientInvalidRetry(t *testing.T) {
	t.Parallel()
	_, err := NewHTTPClient(Env{Logger: fixtures.NewTestLogger(t)}, "x", HTTPConfig{
		URL:   "http://localhost:9091/",
		Retry: util.RetryOptions{Policy: "sometimes", Interval: time.Second, MaxTime: time.Second},
	})
	require.Error(t, err)
}

func TestNewUDPClientInvalid(t *testing.T) {
	t.Parallel()
	_, err := NewUDPClient(Env{Logger: fixtures.NewTestLogger(t)}, "x", UDPConfig{Server: "localhost"})
	require.Error(t, err)
}
