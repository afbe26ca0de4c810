package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"verigate/internal/audit"
	auditkafka "verigate/internal/audit/kafka"
	"verigate/internal/bot"
	"verigate/internal/chat"
	"verigate/internal/chat/discord"
	"verigate/internal/chat/memory"
	chatredis "verigate/internal/chat/redis"
	"verigate/internal/identity"
	identitymetrics "verigate/internal/identity/metrics"
	"verigate/internal/platform/config"
	"verigate/internal/platform/httpserver"
	"verigate/internal/platform/logger"
	"verigate/internal/platform/metrics"
	"verigate/internal/platform/redis"
	"verigate/internal/verification/cache"
	"verigate/internal/verification/handler"
	verificationmetrics "verigate/internal/verification/metrics"
	"verigate/internal/verification/notify"
	"verigate/internal/verification/ratelimit"
	"verigate/internal/verification/service"
	"verigate/internal/verification/store"
	"verigate/pkg/platform/httputil"
	"verigate/pkg/platform/middleware/requesttime"
)

const (
	shutdownTimeout = 10 * time.Second
	auditQueueSize  = 1024
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("verigate exited with error", "error", err)
		os.Exit(1)
	}
}

// platform bundles the chat transport with its lifecycle hooks.
type platform struct {
	transport chat.Transport
	session   *discordgo.Session
	health    func(context.Context) error
	close     func()
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.New(cfg.IsDev())
	slog.SetDefault(log)

	reg := metrics.NewRegistry()
	verifyMetrics := verificationmetrics.New(reg)

	p, err := openPlatform(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer p.close()

	recordStore := store.New(p.transport, cfg.Store.ChannelID,
		store.WithLogger(log),
		store.WithMetrics(verifyMetrics),
		store.WithWindow(cfg.Store.Window),
	)
	recordCache := cache.New(cache.WithMetrics(verifyMetrics))
	notifier := notify.New(p.transport,
		notify.WithAuditChannel(cfg.Chat.AuditChannelID),
		notify.WithGuildName(cfg.Chat.GuildName),
		notify.WithMinCredentialLength(cfg.Verification.MinCredentialLength),
		notify.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)

	// The audit queue outlives gctx so events from draining tasks still land.
	queueCtx, stopQueue := context.WithCancel(context.WithoutCancel(ctx))
	defer stopQueue()

	sinks := []audit.Publisher{notifier, audit.NewLogPublisher(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := auditkafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, auditkafka.WithLogger(log))
		if err != nil {
			return fmt.Errorf("kafka audit publisher: %w", err)
		}
		defer kp.Close()

		queue := audit.NewQueue(kp, auditQueueSize, log)
		g.Go(func() error { return queue.Run(queueCtx) })
		sinks = append(sinks, queue)
		log.InfoContext(ctx, "mirroring audit events to kafka", "topic", cfg.Kafka.Topic)
	}
	auditor := audit.NewMulti(log, sinks...)

	validator := identity.New(cfg.Identity,
		identity.WithLogger(log),
		identity.WithMetrics(identitymetrics.New(reg)),
	)

	svc, err := service.New(validator, recordStore, recordCache, notifier,
		service.WithLogger(log),
		service.WithMetrics(verifyMetrics),
		service.WithAuditPublisher(auditor),
		service.WithStaleAfter(cfg.Verification.StaleAfter),
		service.WithMinCredentialLength(cfg.Verification.MinCredentialLength),
		service.WithSubmissionLimit(ratelimit.New(), cfg.Verification.SubmitLimit, cfg.Verification.SubmitWindow),
	)
	if err != nil {
		return fmt.Errorf("verification service: %w", err)
	}

	if err := svc.Bootstrap(ctx); err != nil {
		// Every user looks unverified until the next successful write.
		log.WarnContext(ctx, "starting with an empty verification cache", "error", err)
	}

	dispatcher, err := bot.New(svc, notifier,
		bot.WithLogger(log),
		bot.WithTaskTimeout(cfg.Verification.TaskTimeout),
	)
	if err != nil {
		return fmt.Errorf("event dispatcher: %w", err)
	}
	if p.session != nil {
		discord.Listen(gctx, p.session, cfg.Chat.GuildID, dispatcher, log)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(requesttime.Middleware)
	router.Handle("/metrics", metrics.Handler(reg))
	router.Get("/healthz", healthz(p.health))
	handler.New(svc, log, cfg.HTTP.AdminToken, cfg.HTTP.ServiceToken).Register(router)

	srv := httpserver.New(cfg.HTTP.Addr, router)

	g.Go(func() error {
		log.InfoContext(gctx, "starting verigate",
			"addr", cfg.HTTP.Addr,
			"transport", cfg.Chat.Transport,
			"record_channel", cfg.Store.ChannelID,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		srvErr := srv.Shutdown(shutdownCtx)
		botErr := dispatcher.Shutdown(shutdownCtx)
		stopQueue()
		return errors.Join(srvErr, botErr)
	})

	return g.Wait()
}

// openPlatform connects the configured chat transport. The discord session is
// opened here so the bot user is known before the cache is rebuilt.
func openPlatform(ctx context.Context, cfg config.Config, log *slog.Logger) (*platform, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Chat.Transport {
	case config.TransportDiscord:
		session, err := discordgo.New("Bot " + cfg.Chat.DiscordToken)
		if err != nil {
			return nil, fmt.Errorf("discord session: %w", err)
		}
		session.Identify.Intents = discord.Intents()
		if err := session.Open(); err != nil {
			return nil, fmt.Errorf("open discord gateway: %w", err)
		}
		return &platform{
			transport: discord.New(session),
			session:   session,
			health:    noop,
			close: func() {
				if err := session.Close(); err != nil {
					log.Warn("closing discord session", "error", err)
				}
			},
		}, nil

	case config.TransportRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis transport: %w", err)
		}
		return &platform{
			transport: chatredis.New(client.Client, cfg.Redis.KeyPrefix),
			health:    client.Health,
			close: func() {
				if err := client.Close(); err != nil {
					log.Warn("closing redis client", "error", err)
				}
			},
		}, nil

	default:
		log.WarnContext(ctx, "using in-memory chat transport; records are lost on restart")
		return &platform{
			transport: memory.New(),
			health:    noop,
			close:     func() {},
		}, nil
	}
}

func healthz(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
