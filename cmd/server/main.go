// Command server runs the message-channel coordinator: wiring, HTTP
// transport, and lifecycle. Business logic lives in internal services.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"lanegate/internal/apps/echo"
	channelstore "lanegate/internal/channel/store"
	composeports "lanegate/internal/compose/ports"
	composeservice "lanegate/internal/compose/service"
	composestore "lanegate/internal/compose/store"
	endpointmetrics "lanegate/internal/endpoint/metrics"
	endpointservice "lanegate/internal/endpoint/service"
	"lanegate/internal/events"
	kafkasink "lanegate/internal/events/sink/kafka"
	eventsmem "lanegate/internal/events/store/memory"
	eventspg "lanegate/internal/events/store/postgres"
	"lanegate/internal/library/blocked"
	"lanegate/internal/library/simple"
	"lanegate/internal/payments"
	"lanegate/internal/platform/config"
	"lanegate/internal/platform/httpserver"
	"lanegate/internal/platform/logger"
	platformredis "lanegate/internal/platform/redis"
	registryservice "lanegate/internal/registry/service"
	registrystore "lanegate/internal/registry/store"
	httptransport "lanegate/internal/transport/http"
	id "lanegate/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	owner := id.AppID(cfg.Owner)
	localDomain := id.DomainID(cfg.LocalDomain)

	// Event store: postgres when configured, memory otherwise; kafka mirrors
	// appends when brokers are set.
	var eventStore events.Store = eventsmem.New()
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		pgStore := eventspg.New(db)
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
		eventStore = pgStore
	}

	var sink *kafkasink.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err = kafkasink.New(eventStore, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		eventStore = sink
	}
	publisher := events.NewPublisher(eventStore)

	registry, err := registryservice.New(owner, registrystore.NewInMemoryRouteStore(),
		registryservice.WithLogger(log), registryservice.WithEvents(publisher))
	if err != nil {
		return err
	}
	if err := registry.Register(ctx, owner, blocked.New()); err != nil {
		return err
	}

	// Compose slots live in redis when configured so replicas share the queue.
	var composeSlots composeports.Store = composestore.NewInMemoryStore()
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		composeSlots = composestore.NewRedisStore(redisClient.Client)
	}
	compose, err := composeservice.New(composeSlots,
		composeservice.WithLogger(log), composeservice.WithEvents(publisher))
	if err != nil {
		return err
	}

	ledger := channelstore.NewInMemoryLedger(channelstore.WithGapScanCap(int(cfg.GapScanCap)))
	vault := payments.NewInMemoryVault()

	endpoint, err := endpointservice.New(localDomain, owner, ledger, registry, compose, vault,
		endpointservice.WithLogger(log),
		endpointservice.WithEvents(publisher),
		endpointservice.WithMetrics(endpointmetrics.New()))
	if err != nil {
		return err
	}

	// Demo wiring so a fresh instance answers traffic out of the box: a
	// flat-fee library as default route and an echo app.
	demo := simple.New("simple-v1", big.NewInt(1), owner)
	if err := registry.Register(ctx, owner, demo); err != nil {
		return err
	}
	echoApp := echo.New("echo", echo.WithComposeFollowUp(compose, "echo"))
	endpoint.RegisterApp(echoApp)

	handler := httptransport.NewHandler(endpoint, registry, compose, publisher, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, []byte(cfg.CallerSecret)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr, "local_domain", localDomain)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if sink != nil {
			_ = sink.Close(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
