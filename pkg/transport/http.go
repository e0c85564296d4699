package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"

	"github.com/atlassian/megatron/pkg/pool"
	"github.com/atlassian/megatron/pkg/util"
)

const contentTypeText = "text/plain; charset=utf-8"

var bodyPool = pool.NewBytesBuffer(pool.DefaultMaxRetained)

// HTTPSender POSTs every batch as a single newline separated body.
type HTTPSender struct {
	logger  logrus.FieldLogger
	client  *http.Client
	url     string
	backoff util.BackoffFactory
}

// NewHTTPSender validates target and prepares a sender using client.  A nil retry factory never
// retries.
func NewHTTPSender(logger logrus.FieldLogger, client *http.Client, target string, retry util.BackoffFactory) (*HTTPSender, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %v", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", target)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", target)
	}
	if retry == nil {
		retry = util.DisabledRetries
	}
	logger.WithField("url", target).Info("created HTTP sender")
	return &HTTPSender{
		logger:  logger.WithField("url", target),
		client:  client,
		url:     target,
		backoff: retry,
	}, nil
}

// Encode renders lines as a request body: every line followed by a newline.
func Encode(lines []string) []byte {
	var buf bytes.Buffer
	encode(&buf, lines)
	return buf.Bytes()
}

func encode(buf *bytes.Buffer, lines []string) {
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

// Send POSTs lines, retrying according to the retry policy.  Client errors (4xx) are not retried.
func (s *HTTPSender) Send(ctx context.Context, lines []string) error {
	buf := bodyPool.Get()
	defer bodyPool.Put(buf)
	encode(buf, lines)
	body := buf.Bytes()
	post := func() error {
		return s.post(ctx, body)
	}
	b := backoff.WithContext(s.backoff(), ctx)
	return backoff.RetryNotify(post, b, func(err error, d time.Duration) {
		s.logger.WithError(err).WithField("sleep", d).Warn("failed to send, retrying")
	})
}

func (s *HTTPSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("unable to create http.Request: %v", err))
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", contentTypeText)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error POSTing: %v", err)
	}
	defer consumeAndClose(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		s.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   strings.TrimSpace(readPrefix(resp.Body)),
		}).Info("failed request")
		err = fmt.Errorf("received bad status code %d", resp.StatusCode)
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}

// Close releases idle connections of the underlying client.
func (s *HTTPSender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTPSender) String() string {
	return s.url
}
