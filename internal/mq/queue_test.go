package mq

import (
	"context"
	"encoding/json"
	"testing"

	redis "github.com/redis/go-redis/v9"

	"github.com/localnerve/gamestore/internal/config"
)

func TestNewSelectsImplementation(t *testing.T) {
	tests := []struct {
		cfg  config.Config
		want string
	}{
		{config.Config{MQType: ""}, "*mq.Noop"},
		{config.Config{MQType: "noop"}, "*mq.Noop"},
		{config.Config{MQType: "carrier-pigeon"}, "*mq.Noop"},
		{config.Config{MQType: "kafka", KafkaBrokers: []string{"localhost:9092"}}, "*mq.kafkaQueue"},
		{config.Config{MQType: "kafka"}, "*mq.Noop"},
		{config.Config{MQType: "redis", RedisURL: "redis://localhost:6379/0"}, "*mq.redisQueue"},
		{config.Config{MQType: "redis", RedisURL: "::bad::"}, "*mq.Noop"},
	}
	for _, tt := range tests {
		q := New(&tt.cfg)
		if got := typeName(q); got != tt.want {
			t.Errorf("New(%+v) = %s, want %s", tt.cfg.MQType, got, tt.want)
		}
		q.Close()
	}
}

func TestNoopPublish(t *testing.T) {
	if err := NewNoop().PublishEvent(context.Background(), map[string]any{"game_id": 1}); err != nil {
		t.Errorf("Noop publish failed: %v", err)
	}
}

func TestRedisArgs(t *testing.T) {
	q := newRedisWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", 500)
	defer q.Close()

	args, err := q.args(map[string]any{"game_id": 7, "type": "download"})
	if err != nil {
		t.Fatalf("args failed: %v", err)
	}
	if args.Stream != "gamestore:downloads" || args.MaxLen != 500 || !args.Approx {
		t.Errorf("Unexpected args %+v", args)
	}
	values, ok := args.Values.(map[string]any)
	if !ok {
		t.Fatalf("Unexpected values type %T", args.Values)
	}
	var evt map[string]any
	if err := json.Unmarshal([]byte(values["data"].(string)), &evt); err != nil {
		t.Fatalf("data is not JSON: %v", err)
	}
	if evt["type"] != "download" {
		t.Errorf("Unexpected payload %v", evt)
	}
}

func typeName(q Queue) string {
	switch q.(type) {
	case *Noop:
		return "*mq.Noop"
	case *kafkaQueue:
		return "*mq.kafkaQueue"
	case *redisQueue:
		return "*mq.redisQueue"
	}
	return "unknown"
}
