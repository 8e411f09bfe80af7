// main.go
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"eshop/config"
	"eshop/controllers"
	"eshop/middleware"
	"eshop/routes"
	"eshop/store"
	"eshop/utils"
	"eshop/workflow"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load(logger)
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Unknown LOG_LEVEL %q, keeping %s", cfg.LogLevel, logger.GetLevel())
	}

	stores, closeStores := openStores(cfg, logger)
	defer closeStores()

	tokens := utils.NewTokenManager(cfg.Secret, cfg.TokenTTL)
	images, err := utils.NewImageStore(cfg.UploadDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to prepare upload directory")
	}

	var mailer controllers.OrderMailer
	if cfg.MailEnabled() {
		mailer = utils.NewEmailService(cfg.PostmarkToken, cfg.EmailSender)
	} else {
		logger.Info("Postmark not configured, order confirmation mail disabled")
	}

	isRevoked := middleware.NeverRevoke
	if cfg.RevokeNonAdmin {
		isRevoked = middleware.RevokeNonAdmin
	}
	gate := middleware.NewGate(tokens, middleware.DefaultExemptions(cfg.APIPrefix), isRevoked, logger)

	// Initialize controllers
	wf := workflow.NewOrderWorkflow(stores, cfg.AllowEmptyOrders, logger)
	ctrls := routes.Controllers{
		Categories: controllers.NewCategoryController(stores.Categories, logger, cfg.RequestTimeout),
		Products:   controllers.NewProductController(stores, images, logger, cfg.RequestTimeout),
		Orders:     controllers.NewOrderController(stores, wf, mailer, logger, cfg.RequestTimeout),
		Users:      controllers.NewUserController(stores.Users, tokens, logger, cfg.RequestTimeout),
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, cfg.APIPrefix, cfg.UploadDir, ctrls)

	logger.WithFields(logrus.Fields{
		"port":             cfg.Port,
		"revoke_non_admin": cfg.RevokeNonAdmin,
	}).Info("Server is running")
	if err := http.ListenAndServe(":"+cfg.Port, routes.Wrap(router, gate, logger)); err != nil {
		logger.WithError(err).Error("Server stopped")
	}
}

// openStores connects the configured store driver and returns a cleanup func.
func openStores(cfg *config.Config, logger *logrus.Logger) (*store.Stores, func()) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return store.NewMemoryStores(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := store.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	db := client.Database(cfg.MongoDatabase)
	if err := store.EnsureIndexes(ctx, db); err != nil {
		logger.WithError(err).Fatal("Failed to create indexes")
	}
	logger.WithField("database", cfg.MongoDatabase).Info("Database Connection is ready...")

	return store.NewMongoStores(db), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.WithError(err).Error("Failed to disconnect from MongoDB")
		}
	}
}
