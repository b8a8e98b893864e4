package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/time-tracking/internal"
	"github.com/frahmantamala/time-tracking/internal/absence"
	abspg "github.com/frahmantamala/time-tracking/internal/absence/postgres"
	"github.com/frahmantamala/time-tracking/internal/auth"
	authpg "github.com/frahmantamala/time-tracking/internal/auth/postgres"
	"github.com/frahmantamala/time-tracking/internal/core/events"
	"github.com/frahmantamala/time-tracking/internal/organization"
	orgpg "github.com/frahmantamala/time-tracking/internal/organization/postgres"
	"github.com/frahmantamala/time-tracking/internal/orgrequest"
	reqpg "github.com/frahmantamala/time-tracking/internal/orgrequest/postgres"
	"github.com/frahmantamala/time-tracking/internal/pauserule"
	rulepg "github.com/frahmantamala/time-tracking/internal/pauserule/postgres"
	"github.com/frahmantamala/time-tracking/internal/schedule"
	schedpg "github.com/frahmantamala/time-tracking/internal/schedule/postgres"
	"github.com/frahmantamala/time-tracking/internal/timetracking"
	entrypg "github.com/frahmantamala/time-tracking/internal/timetracking/postgres"
	"github.com/frahmantamala/time-tracking/internal/transport/rest"
	"github.com/frahmantamala/time-tracking/internal/user"
	userpg "github.com/frahmantamala/time-tracking/internal/user/postgres"
	"github.com/frahmantamala/time-tracking/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	logger.Init(os.Getenv("APP_ENV"))

	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	lg := deps.Logger
	cfg := deps.Config

	// Repositories share one GORM connection; the organization repository
	// doubles as the narrow org store the other domains depend on.
	orgRepo := orgpg.NewOrganizationRepository(deps.GormDB)
	entryRepo := entrypg.NewEntryRepository(deps.GormDB)
	requestRepo := reqpg.NewRequestRepository(deps.GormDB)
	ruleRepo := rulepg.NewPauseRuleRepository(deps.GormDB)
	scheduleRepo := schedpg.NewScheduleRepository(deps.GormDB)
	absenceRepo := abspg.NewAbsenceRepository(deps.GormDB)
	authRepo := authpg.NewRepository(deps.GormDB)
	userRepo := userpg.NewUserRepository(deps.GormDB)

	bus := events.NewEventBus(lg)
	registerNotificationHandlers(bus, lg)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	authService := auth.NewService(authRepo, tokenGen, lg)
	userService := user.NewService(userRepo, cfg.Security.BCryptCost, lg)
	orgService := organization.NewService(orgRepo, entryRepo, lg)
	requestService := orgrequest.NewService(requestRepo, orgRepo, bus, lg)
	ruleService := pauserule.NewService(ruleRepo, orgRepo, lg)
	scheduleService := schedule.NewService(scheduleRepo, orgRepo, lg)
	entryService := timetracking.NewService(entryRepo, orgRepo, ruleRepo, lg)
	absenceService := absence.NewService(absenceRepo, orgRepo, lg)

	handlers := rest.Handlers{
		Auth:         auth.NewHandler(authService),
		User:         user.NewHandler(userService),
		Organization: organization.NewHandler(orgService),
		OrgRequest:   orgrequest.NewHandler(requestService),
		PauseRule:    pauserule.NewHandler(ruleService),
		Schedule:     schedule.NewHandler(scheduleService),
		TimeEntry:    timetracking.NewHandler(entryService),
		Absence:      absence.NewHandler(absenceService),
	}

	guard := auth.NewOrgGuard(deps.DB)
	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, handlers, authService, guard, lg)
}

// registerNotificationHandlers logs request lifecycle events. A real
// notification channel (mail, push) can subscribe the same way.
func registerNotificationHandlers(bus *events.EventBus, lg *slog.Logger) {
	bus.Subscribe(events.EventTypeRequestCreated, func(ctx context.Context, event events.Event) error {
		lg.Info("organization request created",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})
	bus.Subscribe(events.EventTypeRequestResponded, func(ctx context.Context, event events.Event) error {
		lg.Info("organization request resolved",
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	})
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: logger.LoggerWrapper(),
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB opens the shared connection pool over the pgx stdlib driver.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
