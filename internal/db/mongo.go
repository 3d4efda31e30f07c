package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/utils"
)

// MongoService owns the connection to the document store holding the
// dictionary payloads.
type MongoService struct {
	client *mongo.Client
	dbName string
	log    *logger.Logger
}

func NewMongoService(ctx context.Context, log *logger.Logger) (*MongoService, error) {
	serviceLog := log.With("service", "MongoService")

	mongoURI := utils.GetEnv("MONGO_URI", "mongodb://localhost:27017", log)
	mongoName := utils.GetEnv("MONGO_NAME", "fuckdb", log)

	serviceLog.Info("Connecting to MongoDB...")
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		serviceLog.Error("Failed to connect to MongoDB", "error", err)
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		serviceLog.Error("MongoDB ping failed", "error", err)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoService{client: client, dbName: mongoName, log: serviceLog}, nil
}

// Dictionaries returns the collection holding one document per dictionary
// version.
func (s *MongoService) Dictionaries() *mongo.Collection {
	return s.client.Database(s.dbName).Collection("dictionaries")
}

func (s *MongoService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
