package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/megatron/pkg/healthcheck"
	"github.com/atlassian/megatron/pkg/util"
)

const (
	paramAddress           = "address"
	paramEnableProf        = "enable-prof"
	paramEnableMetrics     = "enable-metrics"
	paramEnableHealthcheck = "enable-healthcheck"
)

// HttpServer serves the internal endpoints of the process: Prometheus metrics, health checks and
// optionally profiling.
type HttpServer struct {
	logger  logrus.FieldLogger
	address string
	Router  *mux.Router
}

// Options selects the endpoints of an HttpServer.
type Options struct {
	Address           string
	EnableProf        bool
	EnableMetrics     bool
	EnableHealthcheck bool
	// Gatherer provides the metrics served on /metrics.
	Gatherer prometheus.Gatherer
	// Providers contribute health checks and deep checks, see healthcheck.MaybeAppendHealthChecks.
	Providers []interface{}
}

type route struct {
	path    string
	handler http.HandlerFunc
	method  string
	name    string
}

var done = struct{}{}

// NewHttpServerFromViper creates the server configured by the "web" sub tree of v.  address
// overrides the configured address when not empty.
func NewHttpServerFromViper(v *viper.Viper, logger logrus.FieldLogger, address string, gatherer prometheus.Gatherer, providers ...interface{}) (*HttpServer, error) {
	vSub := util.GetSubViper(v, "web")
	vSub.SetDefault(paramAddress, "127.0.0.1:8080")
	vSub.SetDefault(paramEnableProf, false)
	vSub.SetDefault(paramEnableMetrics, true)
	vSub.SetDefault(paramEnableHealthcheck, true)
	if address == "" {
		address = vSub.GetString(paramAddress)
	}

	return NewHttpServer(logger, Options{
		Address:           address,
		EnableProf:        vSub.GetBool(paramEnableProf),
		EnableMetrics:     vSub.GetBool(paramEnableMetrics),
		EnableHealthcheck: vSub.GetBool(paramEnableHealthcheck),
		Gatherer:          gatherer,
		Providers:         providers,
	})
}

func NewHttpServer(logger logrus.FieldLogger, opts Options) (*HttpServer, error) {
	var routes []route

	server := &HttpServer{
		logger:  logger,
		address: opts.Address,
	}

	if opts.EnableProf {
		profiler := &traceProfiler{}
		routes = append(routes,
			route{path: "/memprof", handler: profiler.MemProf, method: "POST", name: "profmem_post"},
			route{path: "/pprof", handler: profiler.PProf, method: "POST", name: "profpprof_post"},
			route{path: "/trace", handler: profiler.Trace, method: "POST", name: "proftrace_post"},
		)
	}

	if opts.EnableMetrics {
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		handler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{ErrorLog: logger})
		routes = append(routes,
			route{path: "/metrics", handler: handler.ServeHTTP, method: "GET", name: "metrics_get"},
		)
	}

	if opts.EnableHealthcheck {
		hc := &healthChecker{logger: logger}
		for _, p := range opts.Providers {
			hc.healthChecks, hc.deepChecks = healthcheck.MaybeAppendHealthChecks(hc.healthChecks, hc.deepChecks, p)
		}
		routes = append(routes,
			route{path: "/healthcheck", handler: hc.healthCheck, method: "GET", name: "healthcheck_get"},
			route{path: "/deepcheck", handler: hc.deepCheck, method: "GET", name: "deepcheck_get"},
		)
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("must enable at least one of prof, metrics, or healthcheck")
	}

	router, err := createRoutes(routes)
	if err != nil {
		return nil, err
	}
	router.NotFoundHandler = server.logRequest(http.HandlerFunc(server.notFound))
	router.Use(server.logRequest)
	server.Router = router

	logger.WithFields(logrus.Fields{
		"address":              opts.Address,
		paramEnableProf:        opts.EnableProf,
		paramEnableMetrics:     opts.EnableMetrics,
		paramEnableHealthcheck: opts.EnableHealthcheck,
	}).Info("Created server")

	return server, nil
}

func (hs *HttpServer) notFound(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("not found"))
}

func createRoutes(routes []route) (*mux.Router, error) {
	router := mux.NewRouter()

	for _, route := range routes {
		r := router.HandleFunc(route.path, route.handler).Methods(route.method).Name(route.name)
		if err := r.GetError(); err != nil {
			return nil, fmt.Errorf("error creating route %s: %v", route.name, err)
		}
	}

	return router, nil
}

func (hs *HttpServer) logRequest(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logFields := logrus.Fields{
			"srcip": strings.Split(req.RemoteAddr, ":")[0],
			"path":  req.URL.Path,
		}
		if route := mux.CurrentRoute(req); route == nil {
			logFields["method"] = req.Method
		} else {
			logFields["route"] = route.GetName()
		}
		if source := req.Header.Get("X-Forwarded-For"); source != "" {
			logFields["forwarded_for"] = source
		}

		start := time.Now()
		handler.ServeHTTP(w, req)
		dur := time.Since(start)

		logFields["duration"] = float64(dur) / float64(time.Millisecond)
		hs.logger.WithFields(logFields).Debug("request")
	})
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (hs *HttpServer) Run(ctx context.Context) {
	server := &http.Server{
		Addr:    hs.address,
		Handler: hs.Router,
	}

	chStopped := make(chan struct{}, 1)
	go hs.waitAndStop(ctx, server, chStopped)

	hs.logger.WithField("address", server.Addr).Info("listening")

	err := server.ListenAndServe()
	if err != http.ErrServerClosed {
		hs.logger.WithError(err).Error("web server failed")
		return
	}

	// Wait for graceful shutdown of existing connections
	select {
	case <-chStopped:
	case <-time.After(6 * time.Second):
		hs.logger.Info("timeout waiting for webserver to stop")
	}
}

// waitAndStop will gracefully shut down the Server when the Context passed is cancelled.  It signals
// on chStopped when it is done.
func (hs *HttpServer) waitAndStop(ctx context.Context, server *http.Server, chStopped chan<- struct{}) {
	<-ctx.Done()

	hs.logger.Info("shutting down web server")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(timeoutCtx); err != nil {
		hs.logger.WithError(err).Warn("failed to stop web server")
	}
	chStopped <- done
}
