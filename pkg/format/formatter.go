package format

import (
	"strconv"
	"strings"

	"github.com/atlassian/megatron"
)

const (
	// PlatformEntityType is the entity type of the management platform entity itself.
	PlatformEntityType = "com.mycila.megatron.server.entity.MegatronEntity"

	ehcacheEntityPrefix = "org.ehcache."
	datasetEntityPrefix = "com.terracottatech.store."
	ehcacheClientPrefix = "Ehcache:"
	datasetClientPrefix = "Store:"
)

const (
	// DefaultPathSeparator joins the levels of a metric name.
	DefaultPathSeparator = "."
	// DefaultTagAssignment separates a tag key from its value.
	DefaultTagAssignment = "="
	// DefaultTagSeparator separates tags.
	DefaultTagSeparator = ","
)

// structuralKeys identify the position of a metric in the cluster topology.  They are either encoded
// in the metric path or replaced by derived tags, so they are never rendered as tags themselves.
var structuralKeys = map[string]struct{}{
	megatron.ConsumerKey:   {},
	megatron.CollectorKey:  {},
	megatron.EntityKey:     {},
	megatron.EntityTypeKey: {},
	megatron.ServerKey:     {},
	megatron.StripeKey:     {},
	megatron.ClientKey:     {},
}

// Options configures a Formatter.  Empty separators fall back to their defaults.
type Options struct {
	GlobalPrefix  string
	PathSeparator string
	TagSupport    bool
	GlobalTags    []string
	TagAssignment string
	TagSeparator  string
	// TagValueQuote, if set, surrounds every tag value.
	TagValueQuote string
}

// Formatter renders metric names, tags and values from a Context.  It is immutable once built and
// safe for concurrent use.
type Formatter struct {
	globalPrefix  string
	pathSeparator string
	tagSupport    bool
	tagAssignment string
	tagSeparator  string
	tagValueQuote string
	globalTagLine string
}

// New creates a Formatter, precomputing the global tag line.
func New(opts Options) *Formatter {
	f := &Formatter{
		globalPrefix:  opts.GlobalPrefix,
		pathSeparator: orDefault(opts.PathSeparator, DefaultPathSeparator),
		tagSupport:    opts.TagSupport,
		tagAssignment: orDefault(opts.TagAssignment, DefaultTagAssignment),
		tagSeparator:  orDefault(opts.TagSeparator, DefaultTagSeparator),
		tagValueQuote: opts.TagValueQuote,
	}
	globalTags := make([]string, 0, len(opts.GlobalTags))
	for _, tag := range opts.GlobalTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			globalTags = append(globalTags, f.globalTag(tag))
		}
	}
	f.globalTagLine = strings.Join(globalTags, f.tagSeparator)
	return f
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// globalTag renders a configured "key=value" (or "key:value") tag with this formatter's assignment
// and quoting.  Tags without a key are only escaped.
func (f *Formatter) globalTag(tag string) string {
	i := strings.IndexByte(tag, '=')
	if i < 0 {
		i = strings.IndexByte(tag, ':')
	}
	if i <= 0 {
		return Escape(tag)
	}
	return f.tag(tag[:i], tag[i+1:])
}

func (f *Formatter) tag(key, value string) string {
	return key + f.tagAssignment + f.tagValueQuote + Escape(value) + f.tagValueQuote
}

func (f *Formatter) join(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + f.pathSeparator + b
}

// FormatMetricName builds <globalPrefix>.<kindPrefix>.<hierarchy>.<name>, skipping empty levels.
// With tag support the hierarchy only classifies the source, the identity being carried by tags.
// Without it every identifying attribute of ctx is embedded in the path.
func (f *Formatter) FormatMetricName(kindPrefix string, ctx megatron.Context, name string) string {
	var hierarchy string
	if f.tagSupport {
		hierarchy = f.shortHierarchy(ctx)
	} else {
		hierarchy = f.fullHierarchy(ctx)
	}
	metric := f.join(hierarchy, Escape(name))
	metric = f.join(kindPrefix, metric)
	return f.join(f.globalPrefix, metric)
}

// Tags derived from a client identifier.
const (
	HostAddressTag = "hostAddress"
	PidTag         = "pid"
)

// FormatTags renders the tags of ctx, preceded by the global tags.  Returns "" without tag support.
func (f *Formatter) FormatTags(ctx megatron.Context) string {
	if !f.tagSupport {
		return ""
	}
	// Tags derived from the client identifier take the place of the client key and override
	// context entries of the same name.
	ci, hasClient := clientName(ctx)
	tags := make([]string, 0, ctx.Len()+1)
	ctx.Each(func(key, value string) {
		if key == megatron.ClientKey {
			if hasClient {
				tags = append(tags,
					f.tag(HostAddressTag, ci.HostAddress),
					f.tag(PidTag, strconv.FormatInt(ci.Pid, 10)))
			}
			return
		}
		if _, structural := structuralKeys[key]; structural {
			return
		}
		if hasClient && (key == HostAddressTag || key == PidTag) {
			return
		}
		tags = append(tags, f.tag(key, value))
	})
	line := strings.Join(tags, f.tagSeparator)
	switch {
	case line == "":
		return f.globalTagLine
	case f.globalTagLine == "":
		return line
	default:
		return f.globalTagLine + f.tagSeparator + line
	}
}

// FormatValue renders a statistic value.
func (f *Formatter) FormatValue(v interface{}) string {
	return FormatValue(v)
}

func clientName(ctx megatron.Context) (megatron.ClientIdentifier, bool) {
	id, ok := ctx.Get(megatron.ClientKey)
	if !ok {
		return megatron.ClientIdentifier{}, false
	}
	ci, err := megatron.ParseClientIdentifier(id)
	if err != nil {
		return megatron.ClientIdentifier{}, false
	}
	return ci, true
}

func clientKind(name string) string {
	switch {
	case strings.HasPrefix(name, ehcacheClientPrefix):
		return "ehcache"
	case strings.HasPrefix(name, datasetClientPrefix):
		return "dataset"
	default:
		return "unknown"
	}
}

func entityKind(entityType string) string {
	switch {
	case strings.HasPrefix(entityType, ehcacheEntityPrefix):
		return "ehcache"
	case strings.HasPrefix(entityType, datasetEntityPrefix):
		return "dataset"
	default:
		return "unknown"
	}
}

func (f *Formatter) shortHierarchy(ctx megatron.Context) string {
	var levels []string
	if ctx.Contains(megatron.ClientKey) {
		ci, _ := clientName(ctx)
		levels = append(levels, "client", clientKind(ci.Name))
	} else if ctx.Contains(megatron.ServerKey) {
		levels = append(levels, "server")
		if entityType, ok := ctx.Get(megatron.EntityTypeKey); ok {
			if entityType == PlatformEntityType {
				levels = append(levels, "platform")
			} else {
				levels = append(levels, "entity", entityKind(entityType))
			}
		}
	}
	return strings.Join(levels, f.pathSeparator)
}

type pathBuilder struct {
	levels []string
}

// add appends label and the escaped value, only when both are known.
func (p *pathBuilder) add(label string, value string, ok bool) {
	if !ok || label == "" {
		return
	}
	p.levels = append(p.levels, label, Escape(value))
}

func (f *Formatter) fullHierarchy(ctx megatron.Context) string {
	var p pathBuilder
	var v string
	var vok bool
	if ctx.Contains(megatron.ClientKey) {
		ci, ok := clientName(ctx)
		p.add("clients", ci.HostAddress, ok)
		p.add("procs", strconv.FormatInt(ci.Pid, 10), ok)
		switch clientKind(ci.Name) {
		case "ehcache":
			v, vok = get(ctx, megatron.CacheManagerKey)
			p.add("cacheManagers", v, vok)
			v, vok = get(ctx, megatron.CacheKey)
			p.add("caches", v, vok)
		case "dataset":
			v, vok = get(ctx, megatron.DatasetKey)
			p.add("datasets", v, vok)
			v, vok = get(ctx, megatron.DatasetInstKey)
			p.add("instances", v, vok)
		}
	} else if ctx.Contains(megatron.ServerKey) {
		v, vok = get(ctx, megatron.ServerKey)
		p.add("servers", v, vok)
		if entityType, ok := ctx.Get(megatron.EntityTypeKey); ok {
			if entityType != PlatformEntityType {
				v, vok = get(ctx, megatron.EntityNameKey)
				p.add("entities"+f.pathSeparator+entityKind(entityType), v, vok)
			}
			resourceType, _ := ctx.Get(megatron.ResourceTypeKey)
			v, vok = get(ctx, megatron.ResourceAliasKey)
			p.add(resourceType, v, vok)
		}
	}
	return strings.Join(p.levels, f.pathSeparator)
}

func get(ctx megatron.Context, key string) (string, bool) {
	return ctx.Get(key)
}
