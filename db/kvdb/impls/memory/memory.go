// Package memory is an in-process kvdb.Client for single-node deployments and tests.
// Lists and hashes follow Redis semantics for negative indexes and missing keys.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zeptools/gw-impose/db/kvdb"
)

const TypeName = "memory"

func init() {
	kvdb.RegisterFactory(TypeName, func(conf *kvdb.Conf) kvdb.Client {
		return &Client{Conf: conf}
	})
}

type entry struct {
	list      []string
	hash      map[string]string
	expiresAt time.Time // zero = no expiry
}

type Client struct {
	Conf *kvdb.Conf

	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

// Ensure memory.Client implements kvdb.Client interface
var _ kvdb.Client = (*Client)(nil)

func New() *Client {
	c := &Client{Conf: &kvdb.Conf{Type: TypeName}}
	_ = c.Init()
	return c
}

func (c *Client) Init() error {
	c.data = make(map[string]*entry)
	if c.now == nil {
		c.now = time.Now
	}
	return nil
}

func (c *Client) Close() error {
	return nil
}

func (c *Client) GetConf() *kvdb.Conf {
	return c.Conf
}

func (c *Client) Ping(ctx context.Context) error {
	return ctx.Err()
}

// lookup returns the live entry for key, dropping it if expired. Caller holds mu.
func (c *Client) lookup(key string) *entry {
	e, ok := c.data[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.data, key)
		return nil
	}
	return e
}

//--- Key Ops ----

func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, key := range keys {
		if c.lookup(key) != nil {
			delete(c.data, key)
			n++
		}
	}
	return n, nil
}

func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		return false, nil
	}
	if expiration <= 0 {
		delete(c.data, key)
		return true, nil
	}
	e.expiresAt = c.now().Add(expiration)
	return true, nil
}

//---- List Ops ----

func (c *Client) Push(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		e = &entry{}
		c.data[key] = e
	}
	if e.hash != nil {
		return fmt.Errorf("memory kv: %s holds a hash", key)
	}
	e.list = append(e.list, value)
	return nil
}

// span converts Redis style inclusive indexes into a half-open [lo,hi) range
func span(n int, start, stop int64) (int, int) {
	if start < 0 {
		start += int64(n)
	}
	if stop < 0 {
		stop += int64(n)
	}
	if start < 0 {
		start = 0
	}
	if stop >= int64(n) {
		stop = int64(n) - 1
	}
	if start > stop {
		return 0, 0
	}
	return int(start), int(stop) + 1
}

func (c *Client) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		return []string{}, nil
	}
	lo, hi := span(len(e.list), start, stop)
	return append([]string{}, e.list[lo:hi]...), nil
}

func (c *Client) Trim(ctx context.Context, key string, start, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		return nil
	}
	lo, hi := span(len(e.list), start, stop)
	if lo == hi {
		delete(c.data, key)
		return nil
	}
	e.list = append([]string{}, e.list[lo:hi]...)
	return nil
}

//---- Hash Ops ----

func (c *Client) SetFields(ctx context.Context, key string, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(key)
	if e == nil {
		e = &entry{hash: make(map[string]string, len(fields))}
		c.data[key] = e
	}
	if e.hash == nil {
		return fmt.Errorf("memory kv: %s holds a list", key)
	}
	for f, v := range fields {
		e.hash[f] = fmt.Sprint(v)
	}
	return nil
}

func (c *Client) GetAllFields(ctx context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	if e := c.lookup(key); e != nil {
		for f, v := range e.hash {
			out[f] = v
		}
	}
	return out, nil
}
