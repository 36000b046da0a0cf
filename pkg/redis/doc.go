// Package redis provides helpers for connecting to a Redis server: a Connect
// function with retry, an env-taggable Config, and a health-check probe for
// readiness endpoints.
//
//	client, err := redis.Connect(ctx, redis.Config{
//	    ConnectionURL:  "redis://localhost:6379/0",
//	    RetryAttempts:  3,
//	    RetryInterval:  5 * time.Second,
//	    ConnectTimeout: 30 * time.Second,
//	})
//
// The checkpoint package builds its Redis-backed store on a client obtained
// here.
package redis
