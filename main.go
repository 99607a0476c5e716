package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/analytics"
	"github.com/codeoncesoftware/grizzly-core/pkg/config"
	"github.com/codeoncesoftware/grizzly-core/pkg/crypto"
	"github.com/codeoncesoftware/grizzly-core/pkg/handlers"
	"github.com/codeoncesoftware/grizzly-core/pkg/logging"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
	"github.com/codeoncesoftware/grizzly-core/pkg/repositories"
	"github.com/codeoncesoftware/grizzly-core/pkg/services"

	// Provider adapters register themselves on import.
	_ "github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource/elastic"
	_ "github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource/mongodb"
	_ "github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource/relational"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("metadata_uri", logging.SanitizeConnectionString(cfg.Metadata.URI)),
		zap.String("metadata_database", cfg.Metadata.Database))

	encryptor, err := crypto.NewCredentialEncryptor(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("invalid credentials key", zap.Error(err))
	}

	metadataClient, err := connectMetadata(cfg)
	if err != nil {
		logger.Fatal("metadata store connection failed", zap.Error(err))
	}
	metadataDB := metadataClient.Database(cfg.Metadata.Database)

	cache := datasource.NewConnectionCache(datasource.CacheConfig{
		Timeouts: datasource.Timeouts{
			ServerSelection: time.Duration(cfg.Timeouts.ServerSelectionSeconds) * time.Second,
			Connect:         time.Duration(cfg.Timeouts.ConnectSeconds) * time.Second,
		},
		SharedClusters: map[models.Provider]string{
			models.ProviderDocument:   cfg.Clusters.DocumentURI,
			models.ProviderRelational: cfg.Clusters.RelationalDSN,
			models.ProviderSearch:     cfg.Clusters.SearchURL,
		},
	}, logger)

	recordStore := repositories.NewMongoRecordStore(metadataDB)
	containerStore := repositories.NewMongoContainerStore(metadataDB)
	collector := analytics.NewAsyncCollector(logger)

	datasourceService := services.NewDatasourceService(recordStore, encryptor, cache, nil, logger)
	introspection := services.NewIntrospectionService(datasourceService, cache, logger)
	resources := services.NewResourceService(containerStore, logger)
	resolver := services.NewRuntimeResolver(containerStore, datasourceService, nil, cache, collector, logger)
	importer := services.NewImportService(datasourceService, cache, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDatasourceHandler(datasourceService, introspection, importer, logger).RegisterRoutes(mux)
	handlers.NewResourceHandler(resources, resolver, logger).RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("starting grizzly-core", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func connectMetadata(cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Metadata.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return client, nil
}
