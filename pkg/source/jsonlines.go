package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/healthcheck"
)

// StdinName selects standard input in Open.
const StdinName = "-"

// MaxLineSize is the longest line accepted by JSONLines.
const MaxLineSize = 4 * 1024 * 1024

var decoder = jsoniter.Config{UseNumber: true}.Froze()

// record is one input line.  Both fields are optional.
type record struct {
	Notifications []notification         `json:"notifications"`
	Statistics    []contextualStatistics `json:"statistics"`
}

type notification struct {
	Type       string            `json:"type"`
	Context    megatron.Context  `json:"context"`
	Attributes map[string]string `json:"attributes"`
}

type contextualStatistics struct {
	Context    megatron.Context     `json:"context"`
	Statistics map[string]statistic `json:"statistics"`
}

type statistic struct {
	Kind    string   `json:"kind"`
	Samples []sample `json:"samples"`
}

type sample struct {
	Timestamp int64       `json:"timestamp"`
	Value     interface{} `json:"value"`
}

// JSONLines is an EventSource reading one JSON document per line, each holding a batch of
// notifications and/or statistics.  Lines that fail to decode are counted and skipped.
type JSONLines struct {
	// Counter fields below must be read/written only using atomic instructions.
	lines    uint64
	badLines uint64
	failed   uint32

	logger logrus.FieldLogger
	name   string
	r      io.Reader
}

// NewJSONLines creates a source reading r.  name identifies the input in logs.
func NewJSONLines(logger logrus.FieldLogger, name string, r io.Reader) *JSONLines {
	return &JSONLines{
		logger: logger.WithField("input", name),
		name:   name,
		r:      r,
	}
}

// Open opens the named file, or standard input for StdinName.
func Open(name string) (io.ReadCloser, error) {
	if name == StdinName || name == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %v", err)
	}
	return f, nil
}

// Run dispatches every line to listener until the input is exhausted, which returns nil, or ctx is
// done, which returns ctx.Err().
func (s *JSONLines) Run(ctx context.Context, listener megatron.EventListener) error {
	lines := make(chan []byte)
	chErr := make(chan error, 1)

	// Reads can't be interrupted, the reader is abandoned on cancellation.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		scanner.Buffer(make([]byte, 64*1024), MaxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case <-ctx.Done():
				return
			case lines <- line:
			}
		}
		chErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-chErr:
					if err != nil {
						atomic.StoreUint32(&s.failed, 1)
						return fmt.Errorf("failed to read %s: %v", s.name, err)
					}
					s.logger.WithFields(logrus.Fields{
						"lines":     atomic.LoadUint64(&s.lines),
						"bad_lines": atomic.LoadUint64(&s.badLines),
					}).Info("input exhausted")
					return nil
				default:
					// closed by cancellation
					return ctx.Err()
				}
			}
			s.handleLine(line, listener)
		}
	}
}

func (s *JSONLines) handleLine(line []byte, listener megatron.EventListener) {
	if len(line) == 0 {
		return
	}
	atomic.AddUint64(&s.lines, 1)
	notifications, statistics, err := ParseLine(line)
	if err != nil {
		// logging as debug to avoid spamming logs with a garbled input
		s.logger.WithError(err).Debugf("Error parsing line %q", line)
		atomic.AddUint64(&s.badLines, 1)
		return
	}
	if len(notifications) > 0 {
		listener.OnNotifications(notifications)
	}
	if len(statistics) > 0 {
		listener.OnStatistics(statistics)
	}
}

// ParseLine decodes a single line.
func ParseLine(line []byte) ([]*megatron.Notification, []*megatron.ContextualStatistics, error) {
	var rec record
	if err := decoder.Unmarshal(line, &rec); err != nil {
		return nil, nil, err
	}

	var notifications []*megatron.Notification
	for _, n := range rec.Notifications {
		if n.Type == "" {
			return nil, nil, fmt.Errorf("notification without type")
		}
		notifications = append(notifications, &megatron.Notification{
			Type:       n.Type,
			Context:    n.Context,
			Attributes: n.Attributes,
		})
	}

	var statistics []*megatron.ContextualStatistics
	for _, cs := range rec.Statistics {
		stats := make(map[string]*megatron.Statistic, len(cs.Statistics))
		for name, st := range cs.Statistics {
			samples := make([]megatron.Sample, len(st.Samples))
			for i, smp := range st.Samples {
				samples[i] = megatron.Sample{Timestamp: smp.Timestamp, Value: sampleValue(smp.Value)}
			}
			stats[name] = &megatron.Statistic{
				Kind:    megatron.ParseStatisticKind(st.Kind),
				Samples: samples,
			}
		}
		statistics = append(statistics, &megatron.ContextualStatistics{
			Context:    cs.Context,
			Statistics: stats,
		})
	}
	return notifications, statistics, nil
}

// sampleValue keeps integers integral.  Non-numeric values pass through untouched.
func sampleValue(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Lines returns the number of non-empty lines read so far.
func (s *JSONLines) Lines() uint64 {
	return atomic.LoadUint64(&s.lines)
}

// BadLines returns the number of lines that failed to decode.
func (s *JSONLines) BadLines() uint64 {
	return atomic.LoadUint64(&s.badLines)
}

// HealthChecks reports on the input.  It is unhealthy once reading has failed.
func (s *JSONLines) HealthChecks() []healthcheck.HealthcheckFunc {
	return []healthcheck.HealthcheckFunc{
		func() (string, healthcheck.HealthyStatus) {
			msg := fmt.Sprintf("input %s: %d lines, %d bad", s.name, s.Lines(), s.BadLines())
			failed := atomic.LoadUint32(&s.failed) != 0
			if failed {
				msg += ", read failed"
			}
			return msg, healthcheck.StatusOf(!failed)
		},
	}
}
