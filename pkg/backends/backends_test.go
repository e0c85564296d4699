package backends

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/internal/fixtures"
	"github.com/atlassian/megatron/pkg/backends/common"
	"github.com/atlassian/megatron/pkg/healthcheck"
	"github.com/atlassian/megatron/pkg/stats"
)

func TestNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"console", "graphite", "librato", "prometheus-gateway", "prometheus-statsd", "statsd"}, Names())
}

func TestInitPluginUnknown(t *testing.T) {
	t.Parallel()
	_, err := InitPlugin("carrier-pigeon", viper.New(), common.Env{Logger: fixtures.NewTestLogger(t)})
	require.Error(t, err)
	p, err := GetPlugin("carrier-pigeon", viper.New(), common.Env{Logger: fixtures.NewTestLogger(t)})
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestInitPluginsEnabledOnly(t *testing.T) {
	t.Parallel()
	capture := fixtures.NewUDPCapture(t)
	host, port := splitAddr(t, capture.Addr())

	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
[statsd]
enable = true
server = "`+host+`"
port = `+port+`
async = false

[graphite]
enable = false
`)))
	plugins, err := InitPlugins(v, common.Env{Logger: fixtures.NewTestLogger(t)})
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "statsd", plugins[0].Name())

	m := NewMultiplexer(fixtures.NewTestLogger(t), nil, plugins...)
	m.OnNotifications([]*megatron.Notification{{Type: "PING", Context: megatron.NewContext()}})
	m.Close()
	assert.Equal(t, []string{"megatron.events.PING:1|c\n"}, capture.Collect(t, 1))
}

func TestInitPluginsFailureClosesOthers(t *testing.T) {
	t.Parallel()
	v := viper.New()
	v.Set("console.enable", true)
	v.Set("statsd.enable", true)
	v.Set("statsd.port", -1)
	_, err := InitPlugins(v, common.Env{Logger: fixtures.NewTestLogger(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd")
}

func TestInitPluginsNoneEnabled(t *testing.T) {
	t.Parallel()
	plugins, err := InitPlugins(viper.New(), common.Env{Logger: fixtures.NewTestLogger(t)})
	require.NoError(t, err)
	assert.Empty(t, plugins)
}

type recordingPlugin struct {
	name string

	mu            sync.Mutex
	notifications int
	statistics    int
	closed        bool
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnNotifications(n []*megatron.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications += len(n)
}

func (p *recordingPlugin) OnStatistics(s []*megatron.ContextualStatistics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statistics += len(s)
}

func (p *recordingPlugin) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func TestMultiplexerFanOut(t *testing.T) {
	t.Parallel()
	a := &recordingPlugin{name: "a"}
	b := &recordingPlugin{name: "b"}
	metrics := stats.NewClientMetrics()
	m := NewMultiplexer(fixtures.NewTestLogger(t), metrics, a, b)

	m.OnNotifications(make([]*megatron.Notification, 2))
	m.OnStatistics(make([]*megatron.ContextualStatistics, 3))
	m.Close()

	for _, p := range []*recordingPlugin{a, b} {
		assert.Equal(t, 2, p.notifications, p.name)
		assert.Equal(t, 3, p.statistics, p.name)
		assert.True(t, p.closed, p.name)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Events.WithLabelValues("notifications")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Events.WithLabelValues("statistics")))
}

func TestMultiplexerHealthChecks(t *testing.T) {
	t.Parallel()
	empty := NewMultiplexer(fixtures.NewTestLogger(t), nil)
	checks := empty.HealthChecks()
	require.Len(t, checks, 1)
	_, status := checks[0]()
	assert.Equal(t, healthcheck.Unhealthy, status)
	assert.Empty(t, empty.DeepChecks())

	v := viper.New()
	v.Set("console.enable", true)
	v.Set("statsd.enable", true)
	v.Set("statsd.async", false)
	plugins, err := InitPlugins(v, common.Env{Logger: fixtures.NewTestLogger(t)})
	require.NoError(t, err)
	m := NewMultiplexer(fixtures.NewTestLogger(t), nil, plugins...)
	defer m.Close()

	msg, status := m.HealthChecks()[0]()
	assert.Equal(t, "2 plugins enabled", msg)
	assert.Equal(t, healthcheck.Healthy, status)

	// console has no client to report on
	deep := m.DeepChecks()
	require.Len(t, deep, 1)
	msg, status = deep[0]()
	assert.Equal(t, "statsd client open", msg)
	assert.Equal(t, healthcheck.Healthy, status)
}

func splitAddr(t *testing.T, addr string) (string, string) {
	i := strings.LastIndexByte(addr, ':')
	require.True(t, i > 0, addr)
	return addr[:i], addr[i+1:]
}
