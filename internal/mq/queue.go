// queue.go
//
// Game distribution marketplace service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamestore.
// gamestore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamestore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamestore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package mq publishes download events to a stream for downstream consumers.
// Publishing is best effort; the relational store stays the source of truth.
package mq

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/localnerve/gamestore/internal/config"
)

// Queue publishes event payloads.
type Queue interface {
	PublishEvent(ctx context.Context, evt map[string]any) error
	Close() error
}

// publishTimeout bounds a single publish.
const publishTimeout = 2 * time.Second

// New builds the Queue selected by MQ_TYPE.
func New(cfg *config.Config) Queue {
	switch cfg.MQType {
	case "kafka":
		log.Infof("[mq] kafka publisher enabled: brokers=%v topic=%s", cfg.KafkaBrokers, cfg.KafkaTopicDownloads)
		return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopicDownloads)
	case "redis":
		log.Infof("[mq] redis stream publisher enabled: stream=%s", cfg.RedisStreamDownloads)
		return NewRedis(cfg.RedisURL, cfg.RedisStreamDownloads, cfg.RedisStreamMaxLen)
	case "", "noop":
		return NewNoop()
	}
	log.Warnf("[mq] unsupported type %q; using noop", cfg.MQType)
	return NewNoop()
}

// Noop drops every event.
type Noop struct{}

// NewNoop returns a Queue that publishes nothing.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) PublishEvent(context.Context, map[string]any) error { return nil }

func (n *Noop) Close() error { return nil }
