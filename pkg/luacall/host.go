package luacall

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Host is the set of primitives the scripting host must provide: load source
// and obtain its content hash, invoke a loaded script by hash, and field
// get/set on the persistent registry collection. Implementations are
// RedisHost for a live server and luatest.Host for in-process runs.
type Host interface {
	ScriptLoad(ctx context.Context, source string) (string, error)
	EvalSha(ctx context.Context, sha string, keys, args []string) (any, error)
	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
}

// RedisHost implements Host over a go-redis client. Any Cmdable works:
// a single client, a cluster client, or a pipeline-free tx wrapper.
type RedisHost struct {
	rdb redis.Cmdable
}

func NewRedisHost(rdb redis.Cmdable) *RedisHost {
	return &RedisHost{rdb: rdb}
}

func (h *RedisHost) ScriptLoad(ctx context.Context, source string) (string, error) {
	sha, err := h.rdb.ScriptLoad(ctx, source).Result()
	if err != nil {
		return "", fmt.Errorf("loading script: %w", err)
	}
	return sha, nil
}

func (h *RedisHost) EvalSha(ctx context.Context, sha string, keys, args []string) (any, error) {
	argv := make([]any, len(args))
	for i, a := range args {
		argv[i] = a
	}
	return h.rdb.EvalSha(ctx, sha, keys, argv...).Result()
}

func (h *RedisHost) HSet(ctx context.Context, key, field, value string) error {
	return h.rdb.HSet(ctx, key, field, value).Err()
}

func (h *RedisHost) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := h.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
