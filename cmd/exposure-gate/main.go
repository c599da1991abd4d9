package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joripage/exposure-gate/config"
	"github.com/joripage/exposure-gate/pkg/admission"
	"github.com/joripage/exposure-gate/pkg/audit"
	"github.com/joripage/exposure-gate/pkg/exposure"
	"github.com/joripage/exposure-gate/pkg/fixgateway"
	"github.com/joripage/exposure-gate/pkg/httpgateway"
	"github.com/joripage/exposure-gate/pkg/idgen"
	redis_wrapper "github.com/joripage/exposure-gate/pkg/infra/redis"
	"github.com/joripage/exposure-gate/pkg/logging"
	"github.com/joripage/exposure-gate/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel))
	defer logger.Sync() // nolint
	zap.ReplaceGlobals(logger.Zap())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := buildSink(ctx, cfg)
	if err != nil {
		zap.S().Errorf("init audit sink fail with err: %v", err)
		panic(err)
	}
	dispatcher := audit.NewDispatcher(audit.DispatcherConfig{QueueSize: cfg.Audit.QueueSize}, sink, idgen.UUID{}, logger.Named("audit"))
	dispatcher.Start()

	// one ledger shared by both gateways
	ledger := exposure.NewLedger()
	prometheus.MustRegister(metrics.NewExposureCollector(ledger))
	svc := admission.NewService(ledger, cfg.AdmissionSettings(),
		admission.WithLogger(logger.Named("admission")),
		admission.WithRecorder(metrics.Recorder{}),
		admission.WithRecorder(dispatcher),
	)

	var fixServer *fixgateway.Server
	if cfg.Fix.Enabled {
		fixServer = fixgateway.NewServer(fixgateway.AppConfig{
			DispatchMode: cfg.Fix.DispatchMode,
			NumShards:    cfg.Fix.NumShards,
			QueueSize:    cfg.Fix.QueueSize,
		}, svc, logger.Named("fix"))
		fixServer.Init(cfg.Fix.SettingsFile)
		if err := fixServer.Start(); err != nil {
			zap.S().Errorf("start fix server fail with err: %v", err)
			panic(err)
		}
		zap.S().Infow("fix acceptor started", "settings", cfg.Fix.SettingsFile, "dispatch", cfg.Fix.DispatchMode)
	}

	var httpServer *httpgateway.Server
	if cfg.HTTP.Enabled {
		h := httpgateway.NewHandler(svc, ledger, idgen.NewSequence(cfg.HTTP.OrderIDPrefix), logger.Named("http"))
		httpServer = httpgateway.NewServer(httpgateway.ServerConfig{
			Addr:           cfg.HTTP.Addr,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		}, h, logger.Named("http"))
		httpServer.Start()
	}

	<-ctx.Done()
	zap.S().Info("shutting down")

	if fixServer != nil {
		fixServer.Stop()
	}
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zap.S().Warnf("http shutdown: %v", err)
		}
		cancel()
	}
	if err := dispatcher.Stop(); err != nil {
		zap.S().Warnf("close audit sink: %v", err)
	}
}

func buildSink(ctx context.Context, cfg *config.AppConfig) (audit.Sink, error) {
	switch cfg.Audit.Sink {
	case audit.SinkKafka:
		return audit.NewKafkaSink(cfg.Audit.Kafka)
	case audit.SinkNats:
		return audit.NewNatsSink(cfg.Audit.Nats)
	case audit.SinkRedis:
		rdb, err := redis_wrapper.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		return audit.NewRedisSink(rdb, cfg.Audit.Redis), nil
	default:
		return audit.NewNopSink(), nil
	}
}
