package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/megatron/pkg/util"
)

const paramTransportClientTimeout = "client-timeout"
const paramTransportType = "type"

// DefaultClientTimeout bounds a whole HTTP request, including reading the response.
const DefaultClientTimeout = 5 * time.Second
const transportTypeHttp = "http"
const defaultTransportType = transportTypeHttp

// DefaultTransport is the name of the transport used by plugins that do not name one.
const DefaultTransport = "default"

// TransportPool creates http.Clients as required, using the "transport.<name>" sub trees of the
// provided viper.Viper for configuration.
type TransportPool struct {
	config *viper.Viper
	logger logrus.FieldLogger

	mu      sync.Mutex
	clients map[string]*http.Client
}

func NewTransportPool(logger logrus.FieldLogger, config *viper.Viper) *TransportPool {
	return &TransportPool{
		logger:  logger,
		clients: map[string]*http.Client{},
		config:  config,
	}
}

// Get returns the client configured under name, creating it on first use.  Clients are shared
// between all callers asking for the same name.
func (tp *TransportPool) Get(name string) (*http.Client, error) {
	if name == "" {
		name = DefaultTransport
	}
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if hc, ok := tp.clients[name]; ok {
		return hc, nil
	}

	hc, err := tp.newClient(name)
	if err != nil {
		return nil, err
	}
	tp.clients[name] = hc
	return hc, nil
}

func (tp *TransportPool) newClient(name string) (*http.Client, error) {
	key := "transport." + name
	if !tp.config.IsSet(key) && name != DefaultTransport {
		tp.logger.WithField("name", name).Warn("request for non-configured transport, using transport.default")
		key = "transport." + DefaultTransport
	}
	sub := util.GetSubViper(tp.config, key)

	sub.SetDefault(paramTransportClientTimeout, DefaultClientTimeout)
	sub.SetDefault(paramTransportType, defaultTransportType)

	clientTimeout := sub.GetDuration(paramTransportClientTimeout)
	transportType := sub.GetString(paramTransportType)

	if clientTimeout < 0 {
		return nil, errors.New("client-timeout must not be negative") // 0 = no timeout
	}

	var transport *http.Transport
	var err error

	switch transportType {
	case transportTypeHttp:
		transport, err = tp.newHttpTransport(name, sub)
	default:
		err = errors.New("type must be http")
	}
	if err != nil {
		return nil, err
	}

	tp.logger.WithFields(logrus.Fields{
		"name":                      name,
		paramTransportType:          transportType,
		paramTransportClientTimeout: clientTimeout,
	}).Info("created client")

	return &http.Client{
		Transport: transport,
		Timeout:   clientTimeout,
	}, nil
}
