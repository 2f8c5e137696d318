// Package server initializes and runs the vault server: database and
// migrations, the field cipher, application services, the administrator
// seed, and the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/everkeep/everkeep/internal/cryptox"
	"github.com/everkeep/everkeep/internal/logging"
	"github.com/everkeep/everkeep/internal/server/config"
	"github.com/everkeep/everkeep/internal/server/httpapi"
	"github.com/everkeep/everkeep/internal/server/repositories/repomanager"
	"github.com/everkeep/everkeep/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rm     repomanager.RepositoryManager
	users  *services.UserService
	server *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	// master key derivation happens exactly once per process
	key := cryptox.DeriveMasterKey([]byte(cfg.MasterSecret), []byte(cfg.MasterKeySalt))
	cipher, err := cryptox.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	notifier := services.NewLogNotifier(logger)
	users := services.NewUserService(db, rm, cfg, notifier, logger)
	vaults := services.NewVaultService(db, rm, cipher, logger)
	contacts := services.NewContactService(db, rm, users, notifier, logger)
	releases := services.NewReleaseService(db, rm, logger)
	evidence := services.NewEvidenceService(cfg)
	gateway := services.NewAccessGateway(db, rm, vaults, logger)

	server := httpapi.NewServer(cfg, logger, users, vaults, contacts, releases, evidence, gateway)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		rm:     rm,
		users:  users,
		server: server,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")
	app.initSignalHandler(cancelFunc)

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	if err := app.users.EnsureAdmin(ctx, app.config.AdminEmail, app.config.AdminPassword); err != nil {
		return fmt.Errorf("admin seed error: %w", err)
	}

	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}()

	return app.server.Run(ctx)
}
