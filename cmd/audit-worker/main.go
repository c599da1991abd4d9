package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/joripage/exposure-gate/config"
	"github.com/joripage/exposure-gate/pkg/audit"
	"github.com/joripage/exposure-gate/pkg/audit/repo"
	"github.com/joripage/exposure-gate/pkg/audit/worker"
	postgres_wrapper "github.com/joripage/exposure-gate/pkg/infra/postgres"
	"github.com/joripage/exposure-gate/pkg/logging"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

func main() {
	var (
		configFile   string
		reportSymbol string
		reportLimit  int
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&reportSymbol, "report", "", "Print the most recent stored decisions for this symbol and exit")
	flag.IntVar(&reportLimit, "limit", 20, "Number of decisions to print with -report")
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

	// init db
	db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.AuditDB)
	if err != nil {
		zap.S().Errorf("init db fail with err: %v", err)
		panic(err)
	}

	w := worker.NewWorker(repo.NewRepo(db), logger.Named("audit-worker"))

	if reportSymbol != "" {
		if err := printReport(ctx, w, reportSymbol, reportLimit); err != nil {
			zap.S().Errorf("report failed with err: %v", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Audit.Sink == audit.SinkKafka {
		err = w.StartKafkaConsumer(ctx, worker.KafkaSourceConfig{
			Brokers: cfg.Audit.Kafka.Brokers,
			Topic:   cfg.Audit.Kafka.Topic,
			GroupID: cfg.Audit.Durable,
		})
	} else {
		err = consumeNats(ctx, w, cfg)
	}
	if err != nil && ctx.Err() == nil {
		zap.S().Errorf("consumer stopped with err: %v", err)
	}
}

func consumeNats(ctx context.Context, w *worker.Worker, cfg *config.AppConfig) error {
	// NATS
	natsURL := cfg.Audit.Nats.URL
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}
	var nc *nats.Conn
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = time.Minute
	err := backoff.Retry(func() error {
		var err error
		nc, err = nats.Connect(natsURL)
		if err != nil {
			zap.S().Warnf("connect nats error: %v", err)
		}
		return err
	}, boff)
	if err != nil {
		return err
	}
	defer nc.Close()

	// Ensure stream
	js, err := audit.EnsureStream(nc, cfg.Audit.Nats)
	if err != nil {
		return err
	}

	return w.StartConsumer(ctx, js, cfg.Audit.Nats.Subject, cfg.Audit.Durable)
}

func printReport(ctx context.Context, w *worker.Worker, symbol string, limit int) error {
	events, err := w.RecentEvents(ctx, symbol, limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}
