package clients

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Backends holds the stores the gateway serves from.
type Backends struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewBackends(db *gorm.DB, redisClient *redis.Client) *Backends {
	return &Backends{
		DB:    db,
		Redis: redisClient,
	}
}

func (b *Backends) IsDatabaseHealthy(ctx context.Context) error {
	if b.DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := b.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (b *Backends) IsRedisHealthy(ctx context.Context) error {
	if b.Redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	return b.Redis.Ping(ctx).Err()
}

// Unavailable lists the backends that fail a ping.
func (b *Backends) Unavailable(ctx context.Context) []string {
	unavailable := []string{}
	if err := b.IsDatabaseHealthy(ctx); err != nil {
		unavailable = append(unavailable, "database")
	}
	if err := b.IsRedisHealthy(ctx); err != nil {
		unavailable = append(unavailable, "redis")
	}
	return unavailable
}

func (b *Backends) Close() {
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			log.Printf("Failed to close redis: %v", err)
		}
	}
	if b.DB != nil {
		if sqlDB, err := b.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
