package statistics

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/atlassian/megatron"
)

// Reduced maps a statistic name to its reduced scalar value.
type Reduced map[string]megatron.Number

// Names returns the statistic names in sorted order.
func (r Reduced) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Each calls f for every statistic in name order.
func (r Reduced) Each(f func(name string, value megatron.Number)) {
	for _, name := range r.Names() {
		f(name, r[name])
	}
}

// Reduce collapses every sampled statistic into one scalar:
// - RATE and RATIO are averaged over their numeric samples,
// - COUNTER and GAUGE keep their largest numeric sample,
// - TABLE and unknown kinds are dropped.
// A statistic without any numeric sample does not appear in the result.
func Reduce(logger logrus.FieldLogger, stats map[string]*megatron.Statistic) Reduced {
	reduced := make(Reduced, len(stats))
	for name, stat := range stats {
		if stat == nil {
			continue
		}
		switch stat.Kind {
		case megatron.KindRate, megatron.KindRatio:
			if avg, ok := average(stat.Samples); ok {
				reduced[name] = avg
			}
		case megatron.KindCounter, megatron.KindGauge:
			if largest, ok := maximum(stat.Samples); ok {
				reduced[name] = largest
			}
		case megatron.KindTable:
			// tables have no scalar form
		default:
			logger.WithFields(logrus.Fields{
				"name": name,
				"kind": stat.Kind,
			}).Debug("unsupported statistic")
		}
	}
	return reduced
}

func average(samples []megatron.Sample) (megatron.Number, bool) {
	var sum float64
	count := 0
	for _, s := range samples {
		if n, ok := megatron.NumberOf(s.Value); ok {
			sum += n.Float64()
			count++
		}
	}
	if count == 0 {
		return megatron.Number{}, false
	}
	return megatron.Float(sum / float64(count)), true
}

func maximum(samples []megatron.Sample) (megatron.Number, bool) {
	var largest megatron.Number
	found := false
	for _, s := range samples {
		n, ok := megatron.NumberOf(s.Value)
		if !ok {
			continue
		}
		if !found || greater(n.Float64(), largest.Float64()) {
			largest = n
			found = true
		}
	}
	return largest, found
}

// greater orders NaN above every other value, +Inf included.
func greater(v, cur float64) bool {
	return (math.IsNaN(v) && !math.IsNaN(cur)) || (!math.IsNaN(cur) && v > cur)
}
