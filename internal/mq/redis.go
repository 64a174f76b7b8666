package mq

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type redisQueue struct {
	cli    *redis.Client
	stream string
	maxLen int64
}

// NewRedis appends events to a Redis stream, trimmed approximately to maxLen.
func NewRedis(url, stream string, maxLen int64) Queue {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Errorf("[mq] redis parse url: %v", err)
		return NewNoop()
	}
	return newRedisWithClient(redis.NewClient(opt), stream, maxLen)
}

func newRedisWithClient(cli *redis.Client, stream string, maxLen int64) *redisQueue {
	if stream == "" {
		stream = "gamestore:downloads"
	}
	return &redisQueue{cli: cli, stream: stream, maxLen: maxLen}
}

func (q *redisQueue) args(evt map[string]any) (*redis.XAddArgs, error) {
	// one JSON field keeps the stream schema free to evolve
	b, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	args := &redis.XAddArgs{Stream: q.stream, Values: map[string]any{"data": string(b)}}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}
	return args, nil
}

func (q *redisQueue) PublishEvent(ctx context.Context, evt map[string]any) error {
	args, err := q.args(evt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return q.cli.XAdd(ctx, args).Err()
}

func (q *redisQueue) Close() error {
	return q.cli.Close()
}
