package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"LGDPulse/internal/domain/models"
)

// RedisVerdictLog implements VerdictLog as an append-only Redis list per
// model. Entries are RPUSHed and never rewritten.
type RedisVerdictLog struct {
	client *redis.Client
	prefix string
}

// NewRedisVerdictLog creates a Redis verdict log.
func NewRedisVerdictLog(client *redis.Client, prefix string) *RedisVerdictLog {
	if prefix == "" {
		prefix = "lgdpulse"
	}
	return &RedisVerdictLog{client: client, prefix: prefix}
}

func (l *RedisVerdictLog) key(modelID string) string {
	return fmt.Sprintf("%s:verdicts:%s", l.prefix, modelID)
}

func (l *RedisVerdictLog) Append(ctx context.Context, v models.GovernanceVerdict) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	if err := l.client.RPush(ctx, l.key(v.ModelID), data).Err(); err != nil {
		return fmt.Errorf("append verdict: %w", err)
	}
	return nil
}

// History returns the most recent verdicts for a model, newest first.
func (l *RedisVerdictLog) History(ctx context.Context, modelID string, limit int) ([]models.GovernanceVerdict, error) {
	raw, err := l.client.LRange(ctx, l.key(modelID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read verdict history: %w", err)
	}

	out := make([]models.GovernanceVerdict, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var v models.GovernanceVerdict
		if err := json.Unmarshal([]byte(raw[i]), &v); err != nil {
			return nil, fmt.Errorf("decode verdict: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (l *RedisVerdictLog) Close() error {
	return l.client.Close()
}
