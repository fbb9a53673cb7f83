package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// RoomChannel is the pub/sub channel carrying live events for a room.
func RoomChannel(roomID int64) string {
	return fmt.Sprintf("room:%d:events", roomID)
}

// LeaderboardKey is the cache key for a room's computed leaderboard.
func LeaderboardKey(roomID int64) string {
	return fmt.Sprintf("room:%d:leaderboard", roomID)
}
