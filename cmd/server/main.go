package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"fast-frontend/internal/accounts"
	"fast-frontend/internal/admin"
	"fast-frontend/internal/auth"
	"fast-frontend/internal/config"
	"fast-frontend/internal/demo"
	"fast-frontend/internal/engine"
	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
	"fast-frontend/internal/metrics"
	"fast-frontend/internal/store"
	"fast-frontend/internal/store/memory"
)

const accountsPrefix = "/accounts"

// backingStore is what the server needs from either storage backend.
type backingStore interface {
	engine.Storage
	auth.Users
}

func main() {
	ctx := context.Background()
	log := logrus.New()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	log.WithFields(logrus.Fields{"port": cfg.Server.Port, "driver": cfg.Database.Driver}).Info("Config loaded")

	// 2. Load the model catalog
	catalog := metadata.NewCatalog()
	if cfg.Frontend.ModelsPath != "" {
		if err := metadata.LoadFile(cfg.Frontend.ModelsPath, catalog); err != nil {
			log.WithError(err).Fatal("Failed to load models")
		}
	}

	// 3. Open storage, create tables and the accounts table
	storage, closeStore, err := openStore(ctx, cfg, catalog, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}
	defer closeStore()

	// 4. Build the frontend registry
	reg, err := frontend.Open(cfg.Frontend.Registry, catalog, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open frontend registry")
	}
	backend := auth.NewBackend(storage, cfg.JWTSecret)
	var authBackend any
	if cfg.Frontend.Accounts {
		authBackend = backend
	}
	if err := reg.RegisterConfig(&frontend.GlobalConfig{
		LoginRequired: cfg.Frontend.LoginRequired,
		Brand:         cfg.Frontend.Brand,
		Logo:          cfg.Frontend.Logo,
		CSS:           cfg.Frontend.CSS,
		Description:   cfg.Frontend.Description,
		URL:           cfg.Frontend.URL,
		LoginURL:      cfg.Frontend.LoginURL,
		Backend:       authBackend,
	}); err != nil {
		log.WithError(err).Fatal("Failed to register global config")
	}

	renderer, err := engine.NewRenderer(cfg.Frontend.Renderer)
	if err != nil {
		log.WithError(err).Fatal("Failed to select renderer")
	}
	accountsHandler := accounts.NewHandler(backend, reg, renderer, log, accountsPrefix)
	if cfg.Frontend.Accounts {
		if err := reg.RegisterAccounts(&frontend.AccountsConfig{Routes: accountsHandler.Routes()}); err != nil {
			log.WithError(err).Fatal("Failed to register accounts")
		}
	}

	apps := demo.Installed(demo.Apps(storage, log), cfg.Frontend.InstalledApps, log)
	reg.Autodiscover(apps...)
	if len(cfg.Frontend.Sidebar) > 0 {
		if err := reg.SetSidebar(sidebarStructure(cfg.Frontend.Sidebar)); err != nil {
			log.WithError(err).Fatal("Failed to set sidebar")
		}
	}
	reg.Ready()

	// 5. Create Fiber app
	fiberCfg := fiber.Config{ErrorHandler: engine.ErrorHandler(log)}
	if _, ok := renderer.(engine.TemplateRenderer); ok {
		fiberCfg.Views = engine.NewTemplateEngine(cfg.Frontend.Templates, false)
	}
	app := fiber.New(fiberCfg)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	if cfg.Metrics.Enabled {
		app.Use(metrics.Middleware(cfg.Metrics.Path))
		app.Get(cfg.Metrics.Path, metrics.Handler())
	}

	app.Static("/static", cfg.Frontend.Static)

	// 6. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 7. Resolve the principal on every request; gates decide access
	app.Use(auth.Middleware(backend))

	// 8. Account pages and admin introspection
	if cfg.Frontend.Accounts {
		accounts.RegisterRoutes(app, accountsHandler)
	}
	admin.RegisterAdminRoutes(app, admin.NewHandler(reg), auth.RequireAdmin())

	// 9. Frontend routes last: they match any path
	root := app.Group(cfg.Frontend.URL)
	engine.RegisterRoutes(root, engine.NewHandler(reg, storage, renderer, log))

	// 10. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.WithField("addr", addr).Info("Starting server")
	log.Fatal(app.Listen(addr))
}

func openStore(ctx context.Context, cfg *config.Config, catalog *metadata.Catalog, log logrus.FieldLogger) (backingStore, func(), error) {
	if cfg.Database.Driver == "memory" {
		s := memory.New()
		if err := seedAdmin(ctx, s, log); err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}

	db, err := store.New(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := db.Bootstrap(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	if err := store.NewMigrator(db).MigrateAll(ctx, catalog); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, db.Close, nil
}

func seedAdmin(ctx context.Context, users auth.Users, log logrus.FieldLogger) error {
	hash, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}
	if _, err := users.CreateUser(ctx, "admin@localhost", hash, []string{"admin"}); err != nil {
		return err
	}
	log.Warn("Default admin user created (admin@localhost / changeme); change the password immediately")
	return nil
}

func sidebarStructure(sections []config.SidebarSection) frontend.SidebarStructure {
	out := make(frontend.SidebarStructure, 0, len(sections))
	for _, s := range sections {
		section := frontend.SidebarSection{Group: s.Group}
		for _, e := range s.Entities {
			section.Entities = append(section.Entities, e)
		}
		out = append(out, section)
	}
	return out
}
