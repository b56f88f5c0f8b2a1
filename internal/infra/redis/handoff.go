package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"edudash-assessment-service/internal/domain"
)

// handoffKey is the single well-known slot for the most recent result,
// overwritten by each new attempt. It mirrors the dashboard's
// cross-page handoff of a just-computed score.
const handoffKey = "assessment:result:latest"

// ResultHandoff stores the latest session result under one fixed key.
type ResultHandoff struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultHandoff(client *redis.Client, ttl time.Duration) *ResultHandoff {
	return &ResultHandoff{client: client, ttl: ttl}
}

func (h *ResultHandoff) Put(ctx context.Context, result domain.SessionResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return h.client.Set(ctx, handoffKey, raw, h.ttl).Err()
}

func (h *ResultHandoff) Get(ctx context.Context) (domain.SessionResult, bool, error) {
	raw, err := h.client.Get(ctx, handoffKey).Bytes()
	if err == redis.Nil {
		return domain.SessionResult{}, false, nil
	}
	if err != nil {
		return domain.SessionResult{}, false, err
	}
	var result domain.SessionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.SessionResult{}, false, err
	}
	return result, true, nil
}
