package megatron

import (
	"bytes"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Well known Context keys.
const (
	ClientKey        = "clientId"
	ServerKey        = "serverId"
	StripeKey        = "stripeId"
	EntityKey        = "entityId"
	EntityTypeKey    = "entityType"
	EntityNameKey    = "entityName"
	ConsumerKey      = "consumerId"
	CollectorKey     = "collectorId"
	CacheManagerKey  = "cacheManagerName"
	CacheKey         = "cacheName"
	DatasetKey       = "datasetName"
	DatasetInstKey   = "datasetInstanceName"
	ResourceTypeKey  = "type"
	ResourceAliasKey = "alias"
)

// Context is an immutable, ordered set of key/value pairs identifying the subject of a notification
// or a statistic (client, server, cache, entity, ...).
//
// The zero value is an empty Context.
type Context struct {
	keys   []string
	values map[string]string
}

// NewContext builds a Context from alternating keys and values.  A trailing key without value is ignored.
func NewContext(kv ...string) Context {
	var c Context
	for i := 0; i+1 < len(kv); i += 2 {
		c = c.With(kv[i], kv[i+1])
	}
	return c
}

// Len returns the number of entries.
func (c Context) Len() int {
	return len(c.keys)
}

// Contains reports whether key is present.
func (c Context) Contains(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Get returns the value of key, and whether it was present.
func (c Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (c Context) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

// Each calls f for every entry in insertion order.
func (c Context) Each(f func(key, value string)) {
	for _, k := range c.keys {
		f(k, c.values[k])
	}
}

// With returns a new Context with key set to value.  An existing key keeps its position.
func (c Context) With(key, value string) Context {
	n := c.clone(1)
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = value
	return n
}

// WithContext returns a new Context containing every entry of c, overridden and extended by other.
func (c Context) WithContext(other Context) Context {
	n := c.clone(other.Len())
	other.Each(func(k, v string) {
		if _, ok := n.values[k]; !ok {
			n.keys = append(n.keys, k)
		}
		n.values[k] = v
	})
	return n
}

func (c Context) clone(extra int) Context {
	n := Context{
		keys:   make([]string, len(c.keys), len(c.keys)+extra),
		values: make(map[string]string, len(c.keys)+extra),
	}
	copy(n.keys, c.keys)
	for k, v := range c.values {
		n.values[k] = v
	}
	return n
}

// String renders the context as {k=v, ...}.
func (c Context) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(c.values[k])
	}
	sb.WriteByte('}')
	return sb.String()
}

// MarshalJSON encodes the context as a JSON object, keeping insertion order.
func (c Context) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	stream := jsoniter.ConfigDefault.BorrowStream(buf)
	defer jsoniter.ConfigDefault.ReturnStream(stream)
	stream.WriteObjectStart()
	for i, k := range c.keys {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(k)
		stream.WriteString(c.values[k])
	}
	stream.WriteObjectEnd()
	if err := stream.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping the document order.
func (c *Context) UnmarshalJSON(data []byte) error {
	iter := jsoniter.ConfigDefault.BorrowIterator(data)
	defer jsoniter.ConfigDefault.ReturnIterator(iter)
	var n Context
	if iter.WhatIsNext() == jsoniter.NilValue {
		iter.ReadNil()
		*c = n
		return nil
	}
	iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if it.WhatIsNext() != jsoniter.StringValue {
			it.ReportError("context", fmt.Sprintf("value of %q is not a string", key))
			return false
		}
		n = n.With(key, it.ReadString())
		return true
	})
	if iter.Error != nil {
		return iter.Error
	}
	*c = n
	return nil
}
