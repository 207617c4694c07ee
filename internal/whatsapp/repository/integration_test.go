//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	mongoclient "view_bot/internal/mongo"
	"view_bot/internal/whatsapp/models"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

func TestViewConfigRepositoryIntegrationFlow(t *testing.T) {
	t.Parallel()

	db := setupIntegrationDatabase(t)
	repo := NewMongoViewConfigRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := repo.Load(ctx); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound on empty database, got %v", err)
	}

	cfg := models.DefaultViewConfig()
	cfg.Chat = "120363000000000001@g.us"
	cfg.Triggers = append(cfg.Triggers, "ver")
	if err := repo.Save(ctx, cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.Chat != cfg.Chat {
		t.Fatalf("unexpected chat: got %q, want %q", loaded.Chat, cfg.Chat)
	}
	if len(loaded.Triggers) != 2 || loaded.Triggers[1] != "ver" {
		t.Fatalf("unexpected triggers: %v", loaded.Triggers)
	}

	loaded.Status = true
	if err := repo.Save(ctx, loaded); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}
	updated, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if !updated.Status {
		t.Fatalf("expected status forwarding to be enabled")
	}
}

func TestForwardRecordRepositoryIntegrationFlow(t *testing.T) {
	t.Parallel()

	db := setupIntegrationDatabase(t)
	repo := NewMongoForwardRecordRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := repo.EnsureIndexes(ctx, 7); err != nil {
		t.Fatalf("failed to ensure indexes: %v", err)
	}

	now := time.Now().UTC()
	records := []*models.ForwardRecord{
		{Origin: models.ForwardOriginTrigger, Kind: "video", Status: models.ForwardStatusSuccess, CreatedAt: now.Add(-time.Hour)},
		{Origin: models.ForwardOriginStatus, Kind: "image", Status: models.ForwardStatusSuccess, CreatedAt: now.Add(-48 * time.Hour)},
		{Origin: models.ForwardOriginTrigger, Kind: "image", Status: models.ForwardStatusFailed, CreatedAt: now.Add(-time.Minute)},
	}
	for _, record := range records {
		if err := repo.CreateRecord(ctx, record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}
	}

	count, err := repo.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("failed to count records: %v", err)
	}
	if count != 1 {
		t.Fatalf("unexpected count: got %d, want %d", count, 1)
	}
}

func setupIntegrationDatabase(t *testing.T) *mongodriver.Database {
	t.Helper()

	uri := envOrDefault("MONGO_URI", "mongodb://localhost:27017")
	baseDatabase := envOrDefault("TEST_DATABASE", "test_view_bot")
	databaseName := fmt.Sprintf("%s_%d", baseDatabase, time.Now().UnixNano())

	client, err := mongoclient.NewClient(mongoclient.Config{
		URI:      uri,
		Database: databaseName,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		if isCIEnvironment() {
			t.Fatalf("failed to connect MongoDB in CI: %v", err)
		}
		t.Skipf("MongoDB is not available locally, skip integration test: %v", err)
		return nil
	}

	db := client.Database()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := db.Drop(ctx); err != nil {
			t.Errorf("failed to drop integration database %s: %v", databaseName, err)
		}
		if err := client.Close(ctx); err != nil {
			t.Errorf("failed to close MongoDB connection: %v", err)
		}
	})

	return db
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func isCIEnvironment() bool {
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}
