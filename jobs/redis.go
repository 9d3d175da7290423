package jobs

import (
	"github.com/hibiken/asynq"

	"github.com/humpahadi/humpahadi/internal/platform/cache"
)

// RedisOpt resolves a REDIS_ADDR value, host:port or redis:// URL, into the
// connection options asynq expects.
func RedisOpt(addr string) (asynq.RedisClientOpt, error) {
	opts, err := cache.Options(addr)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Network:   opts.Network,
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}
