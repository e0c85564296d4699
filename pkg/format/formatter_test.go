package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/megatron"
)

const (
	ehcacheClient = "1234@10.0.0.5:Ehcache:cm1:abc-123"
	datasetClient = "99@host-b:Store:ds:x:uid"
)

func TestEscape(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"a.b.c":          "a_b_c",
		"a..b":           "a_b",
		"x@$,.:|#;y":     "x_y",
		"plain-name_1":   "plain-name_1",
		"cluster=prod":   "cluster=prod",
		"Cache:PutCount": "Cache_PutCount",
		"":               "",
		".":              "_",
	}
	for in, expected := range tests {
		in, expected := in, expected
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, expected, Escape(in))
		})
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in       interface{}
		expected string
	}{
		{int64(42), "42"},
		{42, "42"},
		{uint64(math.MaxUint64), "18446744073709551615"},
		{megatron.Int(-7), "-7"},
		{megatron.Float(2.5), "2.5"},
		{1.23456789, "1.234568"},
		{1234567.0, "1234567"},
		{0.0, "0"},
		{float32(0.5), "0.5"},
		{1e21, "1000000000000000000000"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
		{"text", "text"},
		{true, "true"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatValue(tt.in), "%#v", tt.in)
	}
}

func TestEndToEndTagMode(t *testing.T) {
	t.Parallel()
	f := New(Options{
		GlobalPrefix: "megatron",
		TagSupport:   true,
		GlobalTags:   []string{"cluster=prod"},
	})
	ctx := megatron.NewContext(
		megatron.ClientKey, ehcacheClient,
		megatron.CacheManagerKey, "cm1",
		megatron.CacheKey, "cache-1",
	)
	assert.Equal(t, "megatron.client.ehcache.Cache_PutCount", f.FormatMetricName("", ctx, "Cache:PutCount"))
	assert.Equal(t, "cluster=prod,hostAddress=10_0_0_5,pid=1234,cacheManagerName=cm1,cacheName=cache-1", f.FormatTags(ctx))
	assert.Equal(t, "megatron.statistics.client.ehcache.Cache_PutCount", f.FormatMetricName("statistics", ctx, "Cache:PutCount"))
}

func TestTagModeHierarchy(t *testing.T) {
	t.Parallel()
	f := New(Options{TagSupport: true})
	tests := []struct {
		name     string
		ctx      megatron.Context
		expected string
	}{
		{"dataset client", megatron.NewContext(megatron.ClientKey, datasetClient), "client.dataset.m"},
		{"unknown client", megatron.NewContext(megatron.ClientKey, "1@h:Other:u"), "client.unknown.m"},
		{"server only", megatron.NewContext(megatron.ServerKey, "s1"), "server.m"},
		{"platform", megatron.NewContext(megatron.ServerKey, "s1", megatron.EntityTypeKey, PlatformEntityType), "server.platform.m"},
		{"ehcache entity", megatron.NewContext(megatron.ServerKey, "s1", megatron.EntityTypeKey, "org.ehcache.clustered.Entity"), "server.entity.ehcache.m"},
		{"dataset entity", megatron.NewContext(megatron.ServerKey, "s1", megatron.EntityTypeKey, "com.terracottatech.store.DatasetEntity"), "server.entity.dataset.m"},
		{"other entity", megatron.NewContext(megatron.ServerKey, "s1", megatron.EntityTypeKey, "x.Y"), "server.entity.unknown.m"},
		{"empty", megatron.NewContext(), "m"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, f.FormatMetricName("", tt.ctx, "m"))
		})
	}
}

func TestFullPathMode(t *testing.T) {
	t.Parallel()
	f := New(Options{GlobalPrefix: "p", TagSupport: false})
	tests := []struct {
		name     string
		ctx      megatron.Context
		expected string
	}{
		{
			name: "ehcache client",
			ctx: megatron.NewContext(
				megatron.ClientKey, ehcacheClient,
				megatron.CacheManagerKey, "cm1",
				megatron.CacheKey, "my.cache",
			),
			expected: "p.statistics.clients.10_0_0_5.procs.1234.cacheManagers.cm1.caches.my_cache.Hits",
		},
		{
			name:     "ehcache client without cache",
			ctx:      megatron.NewContext(megatron.ClientKey, ehcacheClient, megatron.CacheManagerKey, "cm1"),
			expected: "p.statistics.clients.10_0_0_5.procs.1234.cacheManagers.cm1.Hits",
		},
		{
			name: "dataset client",
			ctx: megatron.NewContext(
				megatron.ClientKey, datasetClient,
				megatron.DatasetKey, "ds",
				megatron.DatasetInstKey, "inst",
			),
			expected: "p.statistics.clients.host-b.procs.99.datasets.ds.instances.inst.Hits",
		},
		{
			name: "platform resource",
			ctx: megatron.NewContext(
				megatron.ServerKey, "server-1",
				megatron.EntityTypeKey, PlatformEntityType,
				megatron.ResourceTypeKey, "OffHeapResource",
				megatron.ResourceAliasKey, "primary",
			),
			expected: "p.statistics.servers.server-1.OffHeapResource.primary.Hits",
		},
		{
			name: "entity resource",
			ctx: megatron.NewContext(
				megatron.ServerKey, "server-1",
				megatron.EntityTypeKey, "org.ehcache.clustered.Entity",
				megatron.EntityNameKey, "cm1",
				megatron.ResourceTypeKey, "ServerStore",
				megatron.ResourceAliasKey, "cache-1",
			),
			expected: "p.statistics.servers.server-1.entities.ehcache.cm1.ServerStore.cache-1.Hits",
		},
		{
			name:     "server without entity",
			ctx:      megatron.NewContext(megatron.ServerKey, "server-1"),
			expected: "p.statistics.servers.server-1.Hits",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, f.FormatMetricName("statistics", tt.ctx, "Hits"))
			assert.Empty(t, f.FormatTags(tt.ctx))
		})
	}
}

func TestFormatTagsCustomSyntax(t *testing.T) {
	t.Parallel()
	f := New(Options{
		PathSeparator: "_",
		TagSupport:    true,
		GlobalTags:    []string{"cluster=prod", " ", "dc:eu"},
		TagSeparator:  ",",
		TagValueQuote: `"`,
	})
	ctx := megatron.NewContext(
		megatron.ServerKey, "s1",
		megatron.StripeKey, "stripe",
		megatron.EntityTypeKey, PlatformEntityType,
		megatron.ResourceAliasKey, "a.b",
	)
	assert.Equal(t, `cluster="prod",dc="eu",alias="a_b"`, f.FormatTags(ctx))
	assert.Equal(t, "server_platform_m", f.FormatMetricName("", ctx, "m"))
}

func TestFormatTagsOnlyGlobal(t *testing.T) {
	t.Parallel()
	f := New(Options{TagSupport: true, GlobalTags: []string{"cluster=prod"}, TagAssignment: ":"})
	assert.Equal(t, "cluster:prod", f.FormatTags(megatron.NewContext(megatron.ServerKey, "s1")))
	f = New(Options{TagSupport: true})
	assert.Equal(t, "", f.FormatTags(megatron.NewContext(megatron.ServerKey, "s1")))
	assert.Equal(t, "a=1", f.FormatTags(megatron.NewContext("a", "1")))
}

func TestFormatTagsUnparseableClient(t *testing.T) {
	t.Parallel()
	f := New(Options{TagSupport: true})
	ctx := megatron.NewContext(megatron.ClientKey, "garbage", megatron.CacheKey, "c")
	require.Equal(t, "cacheName=c", f.FormatTags(ctx))
	require.Equal(t, "client.unknown.m", f.FormatMetricName("", ctx, "m"))
}

func TestFormatTagsClientOverridesContextKeys(t *testing.T) {
	t.Parallel()
	f := New(Options{TagSupport: true})
	ctx := megatron.NewContext(
		PidTag, "1",
		megatron.ClientKey, "42@10.0.0.1:Ehcache:cm:uid",
		HostAddressTag, "stale",
		megatron.CacheKey, "c",
	)
	require.Equal(t, "hostAddress=10_0_0_1,pid=42,cacheName=c", f.FormatTags(ctx))

	// Without a parseable client the context keys are kept.
	ctx = megatron.NewContext(megatron.ClientKey, "garbage", HostAddressTag, "h", PidTag, "7")
	require.Equal(t, "hostAddress=h,pid=7", f.FormatTags(ctx))
}
