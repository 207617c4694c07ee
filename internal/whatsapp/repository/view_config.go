package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"view_bot/internal/whatsapp/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoViewConfigRepository 基于 MongoDB 的配置存储
type MongoViewConfigRepository struct {
	collection *mongo.Collection
}

// NewMongoViewConfigRepository 创建配置 Repository
func NewMongoViewConfigRepository(db *mongo.Database) *MongoViewConfigRepository {
	return &MongoViewConfigRepository{
		collection: db.Collection("view_config"),
	}
}

// Load 读取配置
func (r *MongoViewConfigRepository) Load(ctx context.Context) (*models.ViewConfig, error) {
	var cfg models.ViewConfig
	err := r.collection.FindOne(ctx, bson.M{"_id": models.ViewConfigID}).Decode(&cfg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to load view config: %w", err)
	}
	return &cfg, nil
}

// Save 保存配置
func (r *MongoViewConfigRepository) Save(ctx context.Context, cfg *models.ViewConfig) error {
	cfg.ID = models.ViewConfigID
	cfg.UpdatedAt = time.Now()

	update := bson.M{
		"$set": bson.M{
			"chat":       cfg.Chat,
			"triggers":   cfg.Triggers,
			"sticker":    cfg.Sticker,
			"audio":      cfg.Audio,
			"status":     cfg.Status,
			"updated_at": cfg.UpdatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": models.ViewConfigID}, update, opts); err != nil {
		return fmt.Errorf("failed to save view config: %w", err)
	}
	return nil
}
