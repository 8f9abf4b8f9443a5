package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/logger"
	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

const defaultSize = 256

type entry[V any] struct {
	value   V
	expires time.Time
}

// Loader 缓存未命中时计算结果
type Loader[V any] func(ctx context.Context) (V, error)

// Cache 带过期时间的结果缓存。
// 相同 key 的并发调用只会触发一次计算；过期项在下次访问时重新计算，不做主动淘汰。
type Cache[V any] struct {
	store     *lru.Cache[string, entry[V]]
	group     singleflight.Group
	ttl       func() time.Duration
	now       func() time.Time
	cacheable func(V) bool

	// mu 保护 gen 与写入的原子性；Purge 之后开始的加载使用新的 singleflight key
	mu  sync.Mutex
	gen uint64

	hits   atomic.Int64
	misses atomic.Int64
}

// Option 缓存选项
type Option[V any] func(*Cache[V])

// WithClock 替换时钟 (测试使用)
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.now = now }
}

// WithCacheable 只有 fn 返回 true 的结果才写入缓存
func WithCacheable[V any](fn func(V) bool) Option[V] {
	return func(c *Cache[V]) { c.cacheable = fn }
}

// New 创建缓存。ttl 每次写入时读取，便于运行期调整；返回值 <= 0 时不缓存
func New[V any](size int, ttl func() time.Duration, opts ...Option[V]) (*Cache[V], error) {
	if size <= 0 {
		size = defaultSize
	}
	store, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c := &Cache[V]{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get 返回新鲜的缓存值，否则调用 load 计算。第二个返回值表示是否命中。
// 共享的加载不受任何单个调用方取消的影响，每个调用方只按自己的 ctx 放弃等待。
func (c *Cache[V]) Get(ctx context.Context, key string, load Loader[V]) (V, bool, error) {
	var zero V
	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return v, true, nil
	}

	gen := c.generation()
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprintf("%d|%s", gen, key), func() (any, error) {
		// 排队期间可能已有结果写入
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		c.misses.Add(1)
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		if c.cacheable == nil || c.cacheable(v) {
			c.putIfCurrent(gen, key, v)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, false, r.Err
		}
		return r.Val.(V), false, nil
	}
}

func (c *Cache[V]) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	e, ok := c.store.Get(key)
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// putIfCurrent 加载期间发生过 Purge 时丢弃结果，旧配置下算出的值不再写入
func (c *Cache[V]) putIfCurrent(gen uint64, key string, v V) {
	ttl := c.ttl()
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		logger.Log.Debugf("丢弃过期配置下的结果 [%s]", key)
		return
	}
	c.store.Add(key, entry[V]{value: v, expires: c.now().Add(ttl)})
}

// Purge 清空缓存，配置变更后调用；进行中的加载结果不会再写入
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	c.gen++
	c.store.Purge()
	c.mu.Unlock()
	logger.Log.Info("结果缓存已清空")
}

// Stats 命中与未命中次数
func (c *Cache[V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Key 由规范化的查询文本、时间窗口与结果数组成，相同输入得到相同的 key
func Key(query string, tf model.Timeframe, maxResults int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("%s|%s|%d", normalized, tf, maxResults)
}
