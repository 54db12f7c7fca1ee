package config

import (
	"context"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client
var Ctx = context.Background()

// ConnectRedis wires the optional ledger cache. When REDIS_ADDR is unset or
// the server is unreachable RDB stays nil and callers fall through to the DB.
func ConnectRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("REDIS_ADDR not set, ledger caching disabled")
		return
	}

	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	if _, err := RDB.Ping(Ctx).Result(); err != nil {
		log.Println("redis unreachable, ledger caching disabled:", err)
		RDB = nil
		return
	}

	log.Println("connected to redis at", addr)
}
