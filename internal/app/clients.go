package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/cortex-backend/internal/clients/redis"
	"github.com/yungbote/cortex-backend/internal/modules/evaluation"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
	"github.com/yungbote/cortex-backend/internal/platform/openai"
)

type Clients struct {
	Redis *goredis.Client
	// Gen is nil when no OpenAI key is configured.
	Gen evaluation.Generator
}

var errNoGenerator = errors.New("OPENAI_API_KEY not configured")

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis (optional)
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
	} else {
		log.Warn("REDIS_ADDR not set, submission locks and rate limiting disabled")
	}

	// Openai (optional)
	if cfg.OpenAI.APIKey != "" {
		c, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.Gen = evaluation.NewOpenAIGenerator(c)
	}
	return out, nil
}

// evaluator returns the generator for the scoring pipeline. Without a client
// every agent call fails and the pipeline degrades to its fallback result.
func (c Clients) evaluator() evaluation.Generator {
	if c.Gen != nil {
		return c.Gen
	}
	return evaluation.GeneratorFunc(func(context.Context, string, *evaluation.Image) (string, error) {
		return "", errNoGenerator
	})
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
