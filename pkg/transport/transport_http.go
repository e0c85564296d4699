package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/net/http2"
)

// There are other options on http.Transport, but these are the ones relevant to pushing lines
// to a gateway.
const (
	paramHttpDialerKeepAlive       = "dialer-keep-alive"
	paramHttpDialerTimeout         = "dialer-timeout"
	paramHttpEnableHttp2           = "enable-http2"
	paramHttpIdleConnectionTimeout = "idle-connection-timeout"
	paramHttpMaxIdleConnections    = "max-idle-connections"
	paramHttpNetwork               = "network"
	paramHttpTLSHandshakeTimeout   = "tls-handshake-timeout"
	paramHttpResponseHeaderTimeout = "response-header-timeout"
)

// Plugins push small batches to a single gateway, so few idle connections are kept.
const (
	defaultHttpDialerKeepAlive       = 30 * time.Second
	defaultHttpDialerTimeout         = 5 * time.Second
	defaultHttpEnableHttp2           = false
	defaultHttpIdleConnectionTimeout = 30 * time.Second
	defaultHttpMaxIdleConnections    = 10
	defaultHttpNetwork               = "tcp"
	defaultHttpTLSHandshakeTimeout   = 3 * time.Second
	defaultHttpResponseHeaderTimeout = time.Duration(0)
)

// httpTransportConfig is the validated configuration of one http.Transport.
type httpTransportConfig struct {
	dialerKeepAlive       time.Duration // -1 disabled, 0 enabled with OS interval
	dialerTimeout         time.Duration
	enableHttp2           bool
	idleConnectionTimeout time.Duration
	maxIdleConnections    int
	network               string
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
}

func httpTransportConfigFromViper(v *viper.Viper) (httpTransportConfig, error) {
	v.SetDefault(paramHttpDialerKeepAlive, defaultHttpDialerKeepAlive)
	v.SetDefault(paramHttpDialerTimeout, defaultHttpDialerTimeout)
	v.SetDefault(paramHttpEnableHttp2, defaultHttpEnableHttp2)
	v.SetDefault(paramHttpIdleConnectionTimeout, defaultHttpIdleConnectionTimeout)
	v.SetDefault(paramHttpMaxIdleConnections, defaultHttpMaxIdleConnections)
	v.SetDefault(paramHttpNetwork, defaultHttpNetwork)
	v.SetDefault(paramHttpTLSHandshakeTimeout, defaultHttpTLSHandshakeTimeout)
	v.SetDefault(paramHttpResponseHeaderTimeout, defaultHttpResponseHeaderTimeout)

	cfg := httpTransportConfig{
		dialerKeepAlive:       v.GetDuration(paramHttpDialerKeepAlive),
		dialerTimeout:         v.GetDuration(paramHttpDialerTimeout),
		enableHttp2:           v.GetBool(paramHttpEnableHttp2),
		idleConnectionTimeout: v.GetDuration(paramHttpIdleConnectionTimeout),
		maxIdleConnections:    v.GetInt(paramHttpMaxIdleConnections),
		network:               v.GetString(paramHttpNetwork),
		tlsHandshakeTimeout:   v.GetDuration(paramHttpTLSHandshakeTimeout),
		responseHeaderTimeout: v.GetDuration(paramHttpResponseHeaderTimeout),
	}
	return cfg, cfg.validate()
}

func (c httpTransportConfig) validate() error {
	switch {
	case c.dialerKeepAlive < -1:
		return errors.New(paramHttpDialerKeepAlive + " must be -1, 0, or positive")
	case c.dialerTimeout < 0:
		return errors.New(paramHttpDialerTimeout + " must not be negative")
	case c.idleConnectionTimeout < 0:
		return errors.New(paramHttpIdleConnectionTimeout + " must not be negative")
	case c.maxIdleConnections < 0:
		return errors.New(paramHttpMaxIdleConnections + " must not be negative")
	case c.tlsHandshakeTimeout < 0:
		return errors.New(paramHttpTLSHandshakeTimeout + " must not be negative")
	case c.responseHeaderTimeout < 0:
		return errors.New(paramHttpResponseHeaderTimeout + " must not be negative")
	case c.network == "":
		return errors.New(paramHttpNetwork + " must not be empty")
	}
	return nil
}

func (c httpTransportConfig) fields() logrus.Fields {
	return logrus.Fields{
		paramHttpDialerKeepAlive:       c.dialerKeepAlive,
		paramHttpDialerTimeout:         c.dialerTimeout,
		paramHttpEnableHttp2:           c.enableHttp2,
		paramHttpIdleConnectionTimeout: c.idleConnectionTimeout,
		paramHttpMaxIdleConnections:    c.maxIdleConnections,
		paramHttpNetwork:               c.network,
		paramHttpTLSHandshakeTimeout:   c.tlsHandshakeTimeout,
		paramHttpResponseHeaderTimeout: c.responseHeaderTimeout,
	}
}

// build creates the transport.  HTTP/2 is only negotiated when enabled.
func (c httpTransportConfig) build() (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   c.dialerTimeout,
		KeepAlive: c.dialerKeepAlive,
	}
	network := c.network

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: c.tlsHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: func(ctx context.Context, _, address string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, address)
		},
		MaxIdleConns:          c.maxIdleConnections,
		MaxIdleConnsPerHost:   c.maxIdleConnections,
		IdleConnTimeout:       c.idleConnectionTimeout,
		ResponseHeaderTimeout: c.responseHeaderTimeout,
	}

	if c.enableHttp2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, err
		}
	} else {
		// A non-nil empty map disables HTTP/2 in the client.
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}
	return transport, nil
}

func (tp *TransportPool) newHttpTransport(name string, v *viper.Viper) (*http.Transport, error) {
	cfg, err := httpTransportConfigFromViper(v)
	if err != nil {
		return nil, err
	}
	transport, err := cfg.build()
	if err != nil {
		return nil, err
	}
	tp.logger.WithFields(cfg.fields()).WithField("name", name).Info("created transport")
	return transport, nil
}
