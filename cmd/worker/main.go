package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basegraph.app/intake/common/id"
	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/common/otel"
	"basegraph.app/intake/core/config"
	"basegraph.app/intake/core/db"
	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/service/issue_tracker"
	"basegraph.app/intake/internal/service/notify"
	"basegraph.app/intake/internal/service/triage"
	"basegraph.app/intake/internal/store"
	"basegraph.app/intake/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "intake worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Delivery.Group,
		"consumer_name", cfg.Delivery.Consumer,
		"tracker", cfg.Tracker.Provider)

	// Different node ID than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := store.Migrate(ctx, database.Conn()); err != nil {
		slog.ErrorContext(ctx, "failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Delivery.Stream)

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:       cfg.Delivery.Stream,
		Group:        cfg.Delivery.Group,
		Consumer:     cfg.Delivery.Consumer,
		DLQStream:    cfg.Delivery.DLQStream,
		BatchSize:    1,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Delivery.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	processor, err := newDeliveryProcessor(ctx, cfg, store.NewStores(database.Conn()).Tickets(), redisClient)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create delivery processor", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, processor, worker.Config{
		MaxAttempts: cfg.Delivery.MaxAttempts,
	})

	reclaimer := worker.NewReclaimer(redisClient, worker.ReclaimerConfig{
		Stream:    cfg.Delivery.Stream,
		Group:     cfg.Delivery.Group,
		Consumer:  cfg.Delivery.Consumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.Handle)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(runCtx)
	}()
	go func() {
		reclaimer.Run(runCtx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer first; the worker may be mid-delivery.
	reclaimer.Stop()
	w.Stop()

	done := make(chan struct{})
	go func() {
		for range 2 {
			if err := <-errCh; err != nil {
				slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
			}
		}
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
		cancelRun()
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

// newDeliveryProcessor enables each delivery step only when it is configured.
func newDeliveryProcessor(ctx context.Context, cfg config.Config, tickets store.TicketStore, redisClient *redis.Client) (*worker.DeliveryProcessor, error) {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	var classifier triage.Classifier
	if cfg.TriageLLM.Enabled() {
		client, err := llm.New(llm.Config{
			Provider: cfg.TriageLLM.Provider,
			APIKey:   cfg.TriageLLM.APIKey,
			BaseURL:  cfg.TriageLLM.BaseURL,
			Model:    cfg.TriageLLM.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("creating triage llm client: %w", err)
		}
		classifier = triage.NewClassifier(client, triage.WithMaxTokens(cfg.TriageLLM.MaxTokens))
		slog.InfoContext(ctx, "triage enabled", "provider", cfg.TriageLLM.Provider, "model", client.Model())
	}

	sink, err := issue_tracker.NewSink(cfg.Tracker)
	if err != nil {
		return nil, fmt.Errorf("creating ticket sink: %w", err)
	}
	if sink != nil {
		slog.InfoContext(ctx, "issue tracker enabled", "tracker", sink.Name())
	}

	var notifier notify.Notifier
	if cfg.Slack.Enabled() {
		notifier = notify.NewSlackNotifier(cfg.Slack.WebhookURL, httpClient)
		slog.InfoContext(ctx, "slack notifications enabled")
	}

	refs := worker.NewRedisFiledRefs(redisClient, cfg.Session.KeyPrefix, 0)
	return worker.NewDeliveryProcessor(tickets, classifier, sink, notifier, refs), nil
}

const banner = `
██╗███╗   ██╗████████╗ █████╗ ██╗  ██╗███████╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
██║████╗  ██║╚══██╔══╝██╔══██╗██║ ██╔╝██╔════╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██║██╔██╗ ██║   ██║   ███████║█████╔╝ █████╗      ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
██║██║╚██╗██║   ██║   ██╔══██║██╔═██╗ ██╔══╝      ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
██║██║ ╚████║   ██║   ██║  ██║██║  ██╗███████╗    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚═╝╚═╝  ╚═══╝   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝     ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
