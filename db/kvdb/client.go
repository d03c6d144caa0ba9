package kvdb

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Client interface {
	Init() error
	Close() error
	GetConf() *Conf
	Ping(ctx context.Context) error

	//---- Key Ops ----

	Delete(ctx context.Context, keys ...string) (int64, error)
	// Expire sets/updates expiration for a key
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) // found & updated, err

	//---- List Ops ----

	Push(ctx context.Context, key string, value string) error
	Range(ctx context.Context, key string, start int64, stop int64) ([]string, error) // 0-basis, stop inclusive, negative from the tail
	Trim(ctx context.Context, key string, start int64, stop int64) error              // 0-basis, stop inclusive, negative from the tail

	//---- Hash Ops ----

	SetFields(ctx context.Context, key string, fields map[string]any) error
	// GetAllFields returns an empty map for a missing key
	GetAllFields(ctx context.Context, key string) (map[string]string, error)
}

var ErrNotSupported = errors.New("kvdb: operation not supported")

// New builds an uninitialized Client for conf.Type
func New(conf *Conf) (Client, error) {
	factory, ok := registry[conf.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported kv database type: %s", conf.Type)
	}
	return factory(conf), nil
}

var registry = map[string]func(conf *Conf) Client{}

// RegisterFactory is called from the init() of each impl package
func RegisterFactory(kvType string, factory func(conf *Conf) Client) {
	registry[kvType] = factory
}
