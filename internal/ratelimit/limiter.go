// Package ratelimit はキー単位のスライディングウィンドウ方式レート制限を提供する。
// 直近windowの間に記録されたリクエスト時刻を数え、上限に達したキーを拒否する。
package ratelimit

import (
	"sync"
	"time"
)

// Config はリミッター1つ分の設定。
type Config struct {
	MaxRequests int           // ウィンドウ内で許可する最大リクエスト数
	Window      time.Duration // ウィンドウ幅
}

// Limiter はキーごとのリクエスト時刻を保持するスライディングウィンドウリミッター。
// 古い時刻はAllow時およびClearExpired時に遅延削除する。
type Limiter struct {
	name   string
	config Config
	now    func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

// Option はLimiterの生成オプション。
type Option func(*Limiter)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New は名前付きのLimiterを生成する。
func New(name string, config Config, opts ...Option) *Limiter {
	l := &Limiter{
		name:     name,
		config:   config,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name はリミッター名を返す。
func (l *Limiter) Name() string {
	return l.name
}

// Config はリミッターの設定を返す。
func (l *Limiter) Config() Config {
	return l.config
}

// Allow はkeyのリクエストを許可するかどうかを判定する。
// 許可した場合のみ現在時刻を記録する。拒否したリクエストは記録しない。
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.config.Window)

	kept := prune(l.requests[key], windowStart)
	if len(kept) >= l.config.MaxRequests {
		l.store(key, kept)
		return false
	}

	l.requests[key] = append(kept, now)
	return true
}

// IsRateLimited はAllowの否定を返す。許可された場合はリクエストとして記録される。
func (l *Limiter) IsRateLimited(key string) bool {
	return !l.Allow(key)
}

// Remaining はkeyが現在のウィンドウ内であと何回許可されるかを返す。記録は行わない。
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.config.Window)
	count := 0
	for _, ts := range l.requests[key] {
		if ts.After(windowStart) {
			count++
		}
	}
	if count >= l.config.MaxRequests {
		return 0
	}
	return l.config.MaxRequests - count
}

// RetryAfter はkeyが次に許可されるまでの待ち時間を返す。許可される状態なら0を返す。
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := prune(l.requests[key], now.Add(-l.config.Window))
	if len(kept) < l.config.MaxRequests || len(kept) == 0 {
		return 0
	}
	// 上限を超える分の最古の時刻がウィンドウから外れれば許可される
	oldest := kept[len(kept)-l.config.MaxRequests]
	return oldest.Add(l.config.Window).Sub(now)
}

// ClearExpired はウィンドウ外の時刻を削除し、時刻が残らないキーを破棄する。
// 破棄したキー数を返す。メモリ使用量を抑えるため定期的に呼び出す。
func (l *Limiter) ClearExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.config.Window)
	removed := 0
	for key, timestamps := range l.requests {
		kept := prune(timestamps, windowStart)
		if len(kept) == 0 {
			delete(l.requests, key)
			removed++
			continue
		}
		l.requests[key] = kept
	}
	return removed
}

// KeyCount は現在保持しているキー数を返す。テストおよびメトリクス用。
func (l *Limiter) KeyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// store はkeptが空ならキーごと削除し、そうでなければ保存する。
func (l *Limiter) store(key string, kept []time.Time) {
	if len(kept) == 0 {
		delete(l.requests, key)
		return
	}
	l.requests[key] = kept
}

// prune はwindowStart以前（境界を含む）の時刻を取り除く。
// 時刻は記録順に並んでいるため先頭から走査する。
func prune(timestamps []time.Time, windowStart time.Time) []time.Time {
	i := 0
	for i < len(timestamps) && !timestamps[i].After(windowStart) {
		i++
	}
	return timestamps[i:]
}
