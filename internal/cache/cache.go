// Package cache はプロセス内のTTL付きキャッシュを提供する。
// 期限切れエントリはGet時に遅延削除し、バックグラウンドの掃除は行わない。
// 定期的な一括削除が必要な場合は呼び出し側がPurgeを実行する。
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL はTTL未指定時のデフォルト有効期間（5分）。
const DefaultTTL = 5 * time.Minute

// entry はキャッシュ内部の1エントリ。Cacheの外部には公開しない。
type entry[T any] struct {
	data      T
	expiresAt time.Time
}

// Option はCacheの生成オプション。
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Cache は文字列キーの汎用TTLキャッシュ。
// HTTPハンドラーから並行に呼ばれるため内部でロックを取る。
type Cache[T any] struct {
	mu         sync.Mutex
	entries    map[string]entry[T]
	defaultTTL time.Duration
	now        func() time.Time
}

// New はCacheを生成する。defaultTTLが0以下の場合はDefaultTTLを使用する。
func New[T any](defaultTTL time.Duration, opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache[T]{
		entries:    make(map[string]entry[T]),
		defaultTTL: defaultTTL,
		now:        o.now,
	}
}

// Set はデフォルトTTLで値を保存する。既存エントリは上書きする。
func (c *Cache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL は指定TTLで値を保存する。既存エントリは上書きする。
// ttlが0以下の場合はデフォルトTTLを使う。
func (c *Cache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[T]{
		data:      value,
		expiresAt: c.now().Add(ttl),
	}
}

// Get は有効期限内の値を返す。
// 期限切れのエントリは削除した上で見つからなかったものとして扱う。
// 期限ちょうどの時刻はまだ有効とする。
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.data, true
}

// Delete は指定キーのエントリを削除する。
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeletePrefix は指定プレフィックスで始まるキーをすべて削除し、削除件数を返す。
func (c *Cache[T]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear はすべてのエントリを削除する。
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Purge は期限切れエントリを一括削除し、削除件数を返す。
// nilのCacheに対しては何もせず0を返す。
func (c *Cache[T]) Purge() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len は期限切れを含む保持エントリ数を返す。テストおよびメトリクス用。
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
