package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"voice-dataset-collector/internal/apigateway"
	"voice-dataset-collector/internal/collection"
	"voice-dataset-collector/internal/config"
	"voice-dataset-collector/internal/datastore"
	"voice-dataset-collector/internal/objectstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	schema := datastore.SchemaBase
	if cfg.Schema == "extended" {
		schema = datastore.SchemaExtended
	}

	ctx := context.Background()

	var store datastore.RecordStore
	switch cfg.Backend {
	case "files":
		store, err = datastore.NewFileStore(cfg.DatasetDir, schema)
		if err != nil {
			log.Fatalf("Failed to initialize filesystem store: %v", err)
		}
	case "mongo":
		store, err = datastore.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			log.Fatalf("Failed to initialize MongoDB store: %v", err)
		}
	case "postgres":
		db, err := datastore.OpenPostgres(cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		blobs, err := objectstore.NewMinioClient(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("Failed to initialize MinIO client: %v", err)
		}

		store, err = datastore.NewPostgresStore(ctx, db, blobs)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL store: %v", err)
		}
	}

	handler := collection.NewHandler(store, schema, cfg.MaxAudioBytes())
	router := apigateway.SetupRouter(handler)

	log.Printf("Starting server on :%s (backend=%s schema=%s)", cfg.ServerPort, store.Name(), schema)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
