package megatron

import (
	"strings"
)

// StatisticKind is the type of a sampled statistic.
type StatisticKind int

const (
	KindUnknown StatisticKind = iota
	KindRate
	KindRatio
	KindCounter
	KindGauge
	KindTable
)

var kindNames = map[StatisticKind]string{
	KindUnknown: "UNKNOWN",
	KindRate:    "RATE",
	KindRatio:   "RATIO",
	KindCounter: "COUNTER",
	KindGauge:   "GAUGE",
	KindTable:   "TABLE",
}

// ParseStatisticKind maps a kind name (case insensitive) to a StatisticKind.  Unrecognised names
// map to KindUnknown.
func ParseStatisticKind(s string) StatisticKind {
	s = strings.ToUpper(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return KindUnknown
}

func (k StatisticKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Sample is a single timestamped observation.  Value is usually numeric but is not required to be.
type Sample struct {
	Timestamp int64 // milliseconds since the epoch
	Value     interface{}
}

// Statistic is a named (by its owner), typed and sampled measurement.
type Statistic struct {
	Kind    StatisticKind
	Samples []Sample
}

// NewStatistic is a convenience constructor building a Statistic from raw values, with
// timestamps 0, 1, 2...
func NewStatistic(kind StatisticKind, values ...interface{}) *Statistic {
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{Timestamp: int64(i), Value: v}
	}
	return &Statistic{Kind: kind, Samples: samples}
}

// ContextualStatistics is a bundle of statistics collected for one managed element.
type ContextualStatistics struct {
	Context    Context
	Statistics map[string]*Statistic
}

// Notification is a discrete cluster event.
type Notification struct {
	Type       string
	Context    Context
	Attributes map[string]string
}
