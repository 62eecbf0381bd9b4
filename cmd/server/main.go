package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jonboulle/clockwork"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	corepersistence "github.com/openlms-dev/openlms/modules/core/infrastructure/persistence"
	coresvc "github.com/openlms-dev/openlms/modules/core/services"
	"github.com/openlms-dev/openlms/modules/learning/infrastructure/persistence"
	"github.com/openlms-dev/openlms/modules/learning/presentation/controllers"
	"github.com/openlms-dev/openlms/modules/learning/services"
	"github.com/openlms-dev/openlms/pkg/configuration"
	"github.com/openlms-dev/openlms/pkg/eventbus"
	"github.com/openlms-dev/openlms/pkg/middleware"
	"github.com/openlms-dev/openlms/pkg/outbox"
	eventbusdispatcher "github.com/openlms-dev/openlms/pkg/outbox/dispatchers/eventbus"
	"github.com/openlms-dev/openlms/pkg/outbox/redisbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		log.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(conf); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	bus, err := newBus(conf)
	if err != nil {
		log.Fatalf("failed to set up event bus: %v", err)
	}

	enrollments := persistence.NewEnrollmentRepository()
	plans := persistence.NewPlanRepository()
	users := coresvc.NewUserQueryService(corepersistence.NewUserRepository())
	tenants := coresvc.NewTenantService(corepersistence.NewTenantRepository())
	directory := &userDirectory{users: users}
	clock := clockwork.NewRealClock()

	cascadeService := services.NewCascadeService(enrollments, directory, bus, clock)
	archiveService := services.NewArchiveService(enrollments, plans, directory, bus, clock)
	planService := services.NewPlanService(plans, bus, clock)
	reassignmentService := services.NewReassignmentService(plans, enrollments, archiveService, bus, clock)

	router := mux.NewRouter()
	router.Use(
		middleware.WithPool(pool),
		middleware.WithLogger(logger),
		middleware.WithPortal(func(ctx context.Context, tenantID uuid.UUID) error {
			_, err := tenants.GetByID(ctx, tenantID)
			return err
		}),
		middleware.WithActor(),
	)
	router.HandleFunc("/health", healthHandler(pool, bus)).Methods(http.MethodGet)
	controllers.NewLearningAPIController(
		cascadeService,
		archiveService,
		planService,
		reassignmentService,
	).Register(router)

	srv := &http.Server{
		Addr:         conf.SocketAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", conf.SocketAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func runMigrations(conf *configuration.Configuration) error {
	db, err := sql.Open("pgx", conf.Database.Opts)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, conf.MigrationsDir)
}

// newBus picks the outbox transport: Redis pub/sub when configured,
// otherwise the in-process publisher so single-node deployments run
// without extra infrastructure.
func newBus(conf *configuration.Configuration) (outbox.Bus, error) {
	if conf.Redis.URL == "" {
		return eventbusdispatcher.New(eventbus.NewEventPublisherWithError(conf.Logger())), nil
	}

	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, err
	}
	if conf.Redis.Password != "" {
		opts.Password = conf.Redis.Password
	}
	opts.DB = conf.Redis.DB
	return redisbus.New(redis.NewClient(opts)), nil
}

func healthHandler(pool *pgxpool.Pool, bus outbox.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			http.Error(w, fmt.Sprintf("database unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}
		if err := bus.Ping(ctx); err != nil {
			http.Error(w, fmt.Sprintf("event bus unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
