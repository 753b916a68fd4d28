package utils

import (
	"context"
	"log"
	"time"

	"tably/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient backs the orchestrator's conversation sessions.
	SessionCacheClient *redis.Client
	// HoldCacheClient backs the availability engine's slot holds.
	HoldCacheClient *redis.Client
)

// InitRedis initializes the dedicated Redis clients and verifies
// connectivity.
func InitRedis() {
	SessionCacheClient = newClient(config.AppConfig.RedisSessionDB)
	HoldCacheClient = newClient(config.AppConfig.RedisHoldDB)
}

func newClient(db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (db %d): %v", db, err)
	}
	return client
}

// GetSessionCacheClient returns the client for conversation sessions.
func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitRedis()
	}
	return SessionCacheClient
}

// GetHoldCacheClient returns the client for slot holds.
func GetHoldCacheClient() *redis.Client {
	if HoldCacheClient == nil {
		InitRedis()
	}
	return HoldCacheClient
}
