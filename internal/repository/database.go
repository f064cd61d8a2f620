package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb" // Required for mongodb:// URLs
	_ "github.com/golang-migrate/migrate/v4/source/file"      // Required for file source
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Collection names.
const (
	filesCollection      = "files"
	filtersCollection    = "filters"
	usersCollection      = "users"
	thumbnailsCollection = "thumbnails"
	settingsCollection   = "settings"
)

// NewMongoDB establishes a new connection to MongoDB and returns the client and database handle.
func NewMongoDB(ctx context.Context, uri, name string, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	logger.Info("Successfully connected to the database!", zap.String("database", name))
	return client, client.Database(name), nil
}

// MigrateDB applies the index migrations found in migrationsPath.
func MigrateDB(uri, name, migrationsPath string, logger *zap.Logger) error {
	dbURL, err := migrationURL(uri, name)
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No new migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("Database migration was run successfully")
	return nil
}

// migrationURL puts the database name into the URI path, where the migrate
// mongodb driver expects it.
func migrationURL(uri, name string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid database uri: %w", err)
	}
	if strings.Trim(u.Path, "/") == "" {
		u.Path = "/" + name
	}
	return u.String(), nil
}
