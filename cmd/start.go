package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"catalog-manager/core/config"
	"catalog-manager/core/database"
	"catalog-manager/core/loader"
	"catalog-manager/core/logger"
	"catalog-manager/core/middleware/auth"
	"catalog-manager/core/middleware/rayid"
	"catalog-manager/core/storage"

	"catalog-manager/feature/catalog"
	catalogmodels "catalog-manager/feature/catalog/models"
	"catalog-manager/feature/history"
	historymodels "catalog-manager/feature/history/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title Catalog Manager API
// @version 1.0
// @description API for reconciling and navigating product catalogs.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the catalog manager server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}
		entities := append(catalogmodels.All(), historymodels.All()...)
		if err := database.Migrate(db, entities...); err != nil {
			logg.Fatal("Failed to migrate schema", zap.Error(err))
		}
		if missing := database.VerifyTables(db,
			"products", "attribute_types", "attribute_options",
			"variants", "variant_attributes",
			"variant_groups", "variant_group_members",
			"categories", "product_categories",
			"price_change_entries", "change_entries",
		); len(missing) > 0 {
			logg.Warn("Schema verification found missing tables", zap.Strings("tables", missing))
		}

		// 4. Initialize Storage (optional: without it image links stay raw)
		var images storage.ImageStore
		if store, err := storage.NewClient(cfg.Storage); err != nil {
			logg.Warn("Optional storage connection failed", zap.Error(err))
		} else {
			images = storage.NewImageStore(store, cfg.Storage.Bucket, cfg.Catalog.ImageExpiry())
			logg.Info("Connected to object storage", zap.String("bucket", cfg.Storage.Bucket))
		}

		// 5. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We will log our own startup message
		})

		// 6. Initialize Feature Loader
		mgr := loader.NewManager(logg)

		recorder := history.NewRecorder()
		mgr.Register(catalog.NewFeature(db, logg, images, recorder, recorder, cfg.Catalog.NavigationTTL()))
		mgr.Register(history.NewFeature(db, logg))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Custom to use Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 2.5 Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 3. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 7. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(cfg.Server.Addr()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
