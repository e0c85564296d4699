package common

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tilinna/clock"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/client"
	"github.com/atlassian/megatron/pkg/stats"
	"github.com/atlassian/megatron/pkg/transport"
	"github.com/atlassian/megatron/pkg/util"
)

// Env carries the services shared by all plugins.  Only Logger is required.
type Env struct {
	Logger  logrus.FieldLogger
	Pool    *transport.TransportPool
	Starter megatron.GoroutineStarter
	Clock   clock.Clock
	// Metrics, if set, receives the client counters of every plugin.
	Metrics *stats.ClientMetrics
}

func (e Env) clock() clock.Clock {
	if e.Clock == nil {
		return clock.Realtime()
	}
	return e.Clock
}

func (e Env) clientOptions(name string, cfg ClientConfig) client.Options {
	opts := client.Options{
		Name:      name,
		QueueSize: cfg.QueueSize,
		Starter:   e.Starter,
		Clock:     e.Clock,
		Logger:    e.Logger,
	}
	if e.Metrics != nil {
		opts.Counters = e.Metrics.For(name)
	}
	return opts
}

// NewUDPClient creates the client of a UDP plugin.
func NewUDPClient(env Env, name string, cfg UDPConfig) (megatron.Client, error) {
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	sender, err := transport.NewUDPSender(env.Logger, cfg.Address())
	if err != nil {
		return nil, err
	}
	return client.New(sender, cfg.Async, env.clientOptions(name, cfg.ClientConfig)), nil
}

// NewHTTPClient creates the client of an HTTP plugin, taking its http.Client from env.Pool.
func NewHTTPClient(env Env, name string, cfg HTTPConfig) (megatron.Client, error) {
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	retry := util.BackoffFactory(util.DisabledRetries)
	if cfg.Retry.Policy != "" {
		if env.Clock != nil {
			cfg.Retry.Clock = env.Clock
		}
		var err error
		if retry, err = cfg.Retry.Factory(); err != nil {
			return nil, fmt.Errorf("[%s] %v", name, err)
		}
	}
	pool := env.Pool
	if pool == nil {
		pool = transport.NewTransportPool(env.Logger, viper.New())
	}
	hc, err := pool.Get(cfg.Transport)
	if err != nil {
		return nil, err
	}
	sender, err := transport.NewHTTPSender(env.Logger, hc, cfg.URL, retry)
	if err != nil {
		return nil, err
	}
	return client.New(sender, cfg.Async, env.clientOptions(name, cfg.ClientConfig)), nil
}
