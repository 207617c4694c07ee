package repository

import (
	"context"
	"fmt"
	"time"

	"view_bot/internal/whatsapp/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoForwardRecordRepository 转发记录仓储
type MongoForwardRecordRepository struct {
	collection *mongo.Collection
}

// NewMongoForwardRecordRepository 创建转发记录仓储实例
func NewMongoForwardRecordRepository(db *mongo.Database) *MongoForwardRecordRepository {
	return &MongoForwardRecordRepository{
		collection: db.Collection("forward_records"),
	}
}

// CreateRecord 创建转发记录
func (r *MongoForwardRecordRepository) CreateRecord(ctx context.Context, record *models.ForwardRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to create forward record: %w", err)
	}
	return nil
}

// CountSince 统计指定时间之后的成功转发数量
func (r *MongoForwardRecordRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	filter := bson.M{
		"status":     models.ForwardStatusSuccess,
		"created_at": bson.M{"$gte": since},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count forward records: %w", err)
	}
	return count, nil
}

// EnsureIndexes 确保索引存在
func (r *MongoForwardRecordRepository) EnsureIndexes(ctx context.Context, retentionDays int) error {
	indexes := []mongo.IndexModel{
		// TTL 索引（按保留天数自动删除）
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retentionDays * 24 * 3600)),
		},
		// 按状态统计
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes for forward_records: %w", err)
	}
	return nil
}
