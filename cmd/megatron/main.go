package main

import (
	"context"
	_ "expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/ash2k/stager/wait"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atlassian/megatron"
	"github.com/atlassian/megatron/pkg/backends"
	"github.com/atlassian/megatron/pkg/backends/common"
	"github.com/atlassian/megatron/pkg/source"
	"github.com/atlassian/megatron/pkg/stats"
	"github.com/atlassian/megatron/pkg/transport"
	"github.com/atlassian/megatron/pkg/util"
	"github.com/atlassian/megatron/pkg/web"
)

var (
	// BuildDate is the date when the binary was built.
	BuildDate string
	// GitCommit is the commit hash that built the binary.
	GitCommit string
	// Version is the version.
	Version string
)

const (
	// ParamVerbose enables verbose logging.
	ParamVerbose = "verbose"
	// ParamProfile enables profiler endpoint on the specified address and port.
	ParamProfile = "profile"
	// ParamJSON makes logger log in JSON format.
	ParamJSON = "json"
	// ParamConfigPath provides file with configuration.
	ParamConfigPath = "config-path"
	// ParamVersion makes program output its version.
	ParamVersion = "version"
)

func main() {
	v, version, err := setupConfiguration(os.Args[1:])
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		logrus.Fatalf("Error while parsing configuration: %v", err)
	}
	if version {
		fmt.Printf("Version: %s - Commit: %s - Date: %s\n", Version, GitCommit, BuildDate)
		return
	}

	ctx, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()

	if err := run(ctx, v, logrus.StandardLogger()); err != nil {
		logrus.Fatalf("%v", err)
	}
}

// run reads events until the input is exhausted or ctx is done, then closes every plugin,
// waiting for them to drain.
func run(ctx context.Context, v *viper.Viper, logger logrus.FieldLogger) error {
	logger.WithFields(logrus.Fields{
		"version": Version,
		"commit":  GitCommit,
	}).Info("Starting megatron")

	profileAddr := v.GetString(ParamProfile)
	if profileAddr != "" {
		go func() {
			logger.Errorf("Profiler server failed: %v", http.ListenAndServe(profileAddr, nil))
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := stats.NewClientMetrics()
	if err := metrics.Register(registry); err != nil {
		return err
	}

	var wg wait.Group
	defer wg.Wait()
	// Cancelled after the plugins are closed so that draining stays observable.
	webCtx, webCancel := context.WithCancel(context.Background())
	defer webCancel()

	plugins, err := backends.InitPlugins(v, common.Env{
		Logger:  logger,
		Pool:    transport.NewTransportPool(logger, v),
		Starter: &wg,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}
	multiplexer := backends.NewMultiplexer(logger, metrics, plugins...)
	defer multiplexer.Close()

	inputName := v.GetString(megatron.ParamInput)
	input, err := source.Open(inputName)
	if err != nil {
		return err
	}
	defer input.Close()
	src := source.NewJSONLines(logger, inputName, input)

	var runnables []megatron.Runnable
	webAddr := v.GetString(megatron.ParamWebAddr)
	if webAddr != "" || v.IsSet("web.address") {
		hs, err := web.NewHttpServerFromViper(v, logger, webAddr, registry, multiplexer, src)
		if err != nil {
			return err
		}
		runnables = megatron.MaybeAppendRunnable(runnables, hs)
	}
	for _, r := range runnables {
		r := r
		wg.Start(func() {
			r(webCtx)
		})
	}

	err = src.Run(ctx, multiplexer)
	logger.Info("Closing plugins")
	if err != nil && err != context.Canceled {
		return fmt.Errorf("event source failed: %v", err)
	}
	return nil
}

func setupConfiguration(args []string) (*viper.Viper, bool, error) {
	v := viper.New()
	defer setupLogger(v) // Apply logging configuration in case of early exit
	util.InitViper(v, "")

	var version bool

	cmd := pflag.NewFlagSet("megatron", pflag.ContinueOnError)

	cmd.BoolVar(&version, ParamVersion, false, "Print the version and exit")
	cmd.Bool(ParamVerbose, false, "Verbose")
	cmd.Bool(ParamJSON, false, "Log in JSON format")
	cmd.String(ParamProfile, "", "Enable profiler endpoint on the specified address and port")
	cmd.String(ParamConfigPath, "", "Path to the configuration file")

	megatron.AddFlags(cmd)

	cmd.VisitAll(func(flag *pflag.Flag) {
		if err := v.BindPFlag(flag.Name, flag); err != nil {
			panic(err) // Should never happen
		}
	})

	if err := cmd.Parse(args); err != nil {
		return nil, false, err
	}

	configPath := v.GetString(ParamConfigPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, false, err
		}
	}

	return v, version, nil
}

func setupLogger(v *viper.Viper) {
	if v.GetBool(ParamVerbose) {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if v.GetBool(ParamJSON) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
