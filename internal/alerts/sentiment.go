package alerts

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// sentimentKey is where the sentiment pipeline publishes its aggregate
// score (0-100) for the current window.
const sentimentKey = "sentiment:overall"

// RedisSentiment reads the overall sentiment scalar from Redis. A missing
// key, an unparsable value, or an unreachable Redis all report ok=false;
// sentiment alerts then sit out the cycle without error.
type RedisSentiment struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

// NewRedisSentiment creates a sentiment source backed by the given client.
func NewRedisSentiment(rdb *redis.Client, logger zerolog.Logger) *RedisSentiment {
	return &RedisSentiment{
		rdb:    rdb,
		logger: logger.With().Str("component", "sentiment").Logger(),
	}
}

func (s *RedisSentiment) OverallSentiment(ctx context.Context) (float64, bool) {
	raw, err := s.rdb.Get(ctx, sentimentKey).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("sentiment read failed")
		}
		return 0, false
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.logger.Warn().Str("raw", raw).Msg("sentiment value not numeric")
		return 0, false
	}

	return value, true
}

// StaticSentiment serves a fixed sentiment value. Used in tests and
// deployments without a sentiment pipeline.
type StaticSentiment struct {
	Value   float64
	Present bool
}

func (s StaticSentiment) OverallSentiment(ctx context.Context) (float64, bool) {
	return s.Value, s.Present
}
