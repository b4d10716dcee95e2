package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/byndhr/ats-admin"
	"github.com/byndhr/ats-admin/middleware/csrf"
	"github.com/byndhr/ats-admin/social"
	"github.com/byndhr/ats-admin/social/providers/google"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views public
var assetsFS embed.FS

type App struct {
	config *ats.Config
	bunDB  *bun.DB
	repo   ats.RepositoryManager
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	ctx := context.Background()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("ats"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := ats.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		log.Fatal(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		log.Fatal(err)
	}

	app.srv.Serve(fmt.Sprintf(":%d", cfg.Port))

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.config.Persistence.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*ats.UserRecord)(nil))
	persistence.RegisterModel((*ats.Company)(nil))
	persistence.RegisterModel((*ats.SessionSlot)(nil))

	client, err := persistence.New(app.config.Persistence, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(ats.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = ats.NewRepositoryManager(client.DB())
	app.repo.MustValidate()

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	cfg := app.config

	templates, err := fs.Sub(assetsFS, "views")
	if err != nil {
		return err
	}
	engine := django.NewFileSystem(http.FS(templates), ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	appLogger := app.GetLogger("app")

	tokenService := ats.NewTokenService(
		[]byte(cfg.StorageSecret),
		cfg.TokenLifetime,
		"ats-admin",
		appLogger,
	)

	transport := ats.NewSessionTransport(
		cfg.SessionStrategy,
		cfg.TokenLifetime,
		app.repo.SessionSlots(),
		appLogger,
	)

	resolver := ats.NewSessionResolver(
		tokenService,
		app.repo.Users(),
		ats.WithResolverLogger(appLogger),
	)

	srv.Router().Use(ats.SessionMiddleware(transport, resolver, appLogger))

	// Runs after the session middleware so tokens bind to the resolved account.
	csrfKey := sha256.Sum256([]byte(cfg.StorageSecret + ":csrf"))
	srv.Router().Use(csrf.New(csrf.Config{SecureKey: csrfKey[:]}))

	// The state keys are derived from the storage secret so a single secret
	// configures both the session tokens and the OAuth state envelope.
	encKey := sha256.Sum256([]byte(cfg.StorageSecret))
	hmacKey := sha256.Sum256([]byte(cfg.StorageSecret + ":state"))

	orchestrator := social.NewLoginOrchestrator(
		app.repo.Users(),
		tokenService,
		social.Config{
			BaseURL:            cfg.BaseURL,
			StateEncryptionKey: encKey[:],
			StateHMACKey:       hmacKey[:],
		},
		social.WithProvider(google.New(google.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.BaseURL + "/oauth/google/redirect",
		})),
		social.WithLogger(appLogger),
	)

	oauthController := social.NewHTTPController(orchestrator, transport, social.HTTPConfig{}, appLogger)
	oauthController.RegisterRoutes(srv.Router())

	// Only the public subtree is served; the embedded templates stay private.
	assets, err := fs.Sub(assetsFS, "public")
	if err != nil {
		return err
	}

	srv.Router().Static("/public", ".", router.Static{
		FS:   assets,
		Root: ".",
	})

	ats.RegisterPageRoutes(
		srv.Router(),
		ats.WithPagesRepository(app.repo),
		ats.WithPagesTransport(transport),
		ats.WithPagesLogger(appLogger),
		ats.WithPagesDebug(cfg.Debug),
	)

	app.srv = srv

	return nil
}

func WaitExitSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(
		quit,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	return <-quit
}
