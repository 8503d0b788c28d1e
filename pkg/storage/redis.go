package storage

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
)

// RedisKeyPrefix namespaces snapshot keys.
const RedisKeyPrefix = "taskmap:snapshot:"

// Redis stores each snapshot under RedisKeyPrefix+name.
type Redis struct {
	client *redis.Client
}

// NewRedis connects using a redis:// or rediss:// URL and pings the server.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, taskerr.Wrap(taskerr.ErrCodeInvalidConfig, err, "parse redis URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, storageErr(err, "connect to redis at %s", opts.Addr)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Read(ctx context.Context, name string) ([]byte, error) {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, RedisKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, storageErr(err, "read snapshot %q", name)
	}
	return data, nil
}

func (r *Redis) Write(ctx context.Context, name string, data []byte) error {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return err
	}
	if err := r.client.Set(ctx, RedisKeyPrefix+name, data, 0).Err(); err != nil {
		return storageErr(err, "write snapshot %q", name)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := r.client.Scan(ctx, 0, RedisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), RedisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr(err, "list snapshots")
	}
	// SCAN may return a key more than once.
	slices.Sort(names)
	return slices.Compact(names), nil
}

func (r *Redis) Delete(ctx context.Context, name string) error {
	if err := taskerr.ValidateSnapshotName(name); err != nil {
		return err
	}
	n, err := r.client.Del(ctx, RedisKeyPrefix+name).Result()
	if err != nil {
		return storageErr(err, "delete snapshot %q", name)
	}
	if n == 0 {
		return notFound(name)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Backend = (*Redis)(nil)
