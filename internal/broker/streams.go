package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/party-realm/api/internal/models"
)

// payloadField is the stream entry field carrying the JSON-encoded event
const payloadField = "payload"

// PublishBattleRequest appends a battle request to the battles-request stream
func (c *Client) PublishBattleRequest(ctx context.Context, req models.BattleRequest) error {
	return c.publish(ctx, StreamBattleRequest, req)
}

// PublishBattleUpdate appends a battle update to the battles-update stream
func (c *Client) PublishBattleUpdate(ctx context.Context, update models.BattleUpdate) error {
	return c.publish(ctx, StreamBattleUpdate, update)
}

// PublishBattleEnd appends a battle-end event to the battles-end stream. The
// combat simulator uses this; it is exposed here so local tooling can inject
// outcomes.
func (c *Client) PublishBattleEnd(ctx context.Context, end models.BattleEnd) error {
	return c.publish(ctx, StreamBattleEnd, end)
}

func (c *Client) publish(ctx context.Context, stream string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", stream, err)
	}
	err = c.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{payloadField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}
	return nil
}

// EndHandler processes one battle-end delivery. Returning nil acknowledges
// the entry; returning an error leaves it pending for redelivery.
type EndHandler func(ctx context.Context, messageID string, payload []byte) error

// ConsumeBattleEnd reads the battles-end stream through a consumer group and
// dispatches each entry to the handler. Entries for different battles are
// handled concurrently; acknowledgment follows a nil handler result. The call
// blocks until ctx is cancelled.
func (c *Client) ConsumeBattleEnd(ctx context.Context, handler EndHandler) error {
	err := c.XGroupCreateMkStream(ctx, StreamBattleEnd, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", c.group, err)
	}

	log.Printf("[Broker] Consuming %s as %s/%s", StreamBattleEnd, c.group, c.consumer)

	claimTicker := time.NewTicker(c.claimAge)
	defer claimTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-claimTicker.C:
			c.reclaimPending(ctx, handler)
		default:
		}

		streams, err := c.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{StreamBattleEnd, ">"},
			Count:    16,
			Block:    c.block,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[Broker] Read failed, retrying: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				go c.dispatch(ctx, message, handler)
			}
		}
	}
}

// reclaimPending takes over entries left pending longer than the claim age,
// e.g. by a crashed consumer, and re-runs them
func (c *Client) reclaimPending(ctx context.Context, handler EndHandler) {
	messages, _, err := c.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamBattleEnd,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  c.claimAge,
		Start:    "0-0",
		Count:    16,
	}).Result()
	if err != nil {
		log.Printf("[Broker] Failed to reclaim pending entries: %v", err)
		return
	}
	if len(messages) > 0 {
		log.Printf("[Broker] Reclaimed %d pending entries", len(messages))
	}
	for _, message := range messages {
		go c.dispatch(ctx, message, handler)
	}
}

func (c *Client) dispatch(ctx context.Context, message redis.XMessage, handler EndHandler) {
	payload, ok := message.Values[payloadField].(string)
	if !ok {
		// Entry without a payload field can never be processed.
		log.Printf("[Broker] Dropping malformed entry %s: missing %s field", message.ID, payloadField)
		c.ack(ctx, message.ID)
		return
	}

	if err := handler(ctx, message.ID, []byte(payload)); err != nil {
		log.Printf("[Broker] Entry %s left pending for redelivery: %v", message.ID, err)
		return
	}
	c.ack(ctx, message.ID)
}

func (c *Client) ack(ctx context.Context, messageID string) {
	if err := c.XAck(ctx, StreamBattleEnd, c.group, messageID).Err(); err != nil {
		log.Printf("[Broker] Failed to ack entry %s: %v", messageID, err)
	}
}
