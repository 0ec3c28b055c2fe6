// Package remote はリモートデータストアへの呼び出しを統括する。
// 呼び出しごとにキャッシュ参照、レート制限、タイムアウト、リトライ、
// エラー分類を適用し、結果を (T, error) の形で返す。
package remote

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/hitoshi/hrportal/internal/cache"
	"github.com/hitoshi/hrportal/internal/model"
	"github.com/hitoshi/hrportal/internal/ratelimit"
)

const (
	// DefaultTimeout は1回の呼び出しのデフォルトタイムアウト。
	DefaultTimeout = 10 * time.Second
	// DefaultAttempts はデフォルトの最大試行回数。
	DefaultAttempts = 3
	// DefaultBaseBackoff はリトライ間隔の基準値。n回目の失敗後は base * 2^n 待機する。
	DefaultBaseBackoff = time.Second
)

// Config はClientの設定を保持する。
type Config struct {
	Timeout     time.Duration
	Attempts    int
	BaseBackoff time.Duration
}

// DefaultConfig はデフォルト設定を返す。
func DefaultConfig() Config {
	return Config{
		Timeout:     DefaultTimeout,
		Attempts:    DefaultAttempts,
		BaseBackoff: DefaultBaseBackoff,
	}
}

// Recorder は呼び出し結果を記録するインターフェース。
// metrics.Collectorが実装する。
type Recorder interface {
	RecordCacheLookup(op string, hit bool)
	RecordRemoteCall(op string, outcome string, duration time.Duration)
	RecordRetry(op string)
	RecordRateLimited(limiter string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(string, bool)                 {}
func (nopRecorder) RecordRemoteCall(string, string, time.Duration) {}
func (nopRecorder) RecordRetry(string)                             {}
func (nopRecorder) RecordRateLimited(string)                       {}

// Client はリモート呼び出しの共通処理を提供する。
type Client struct {
	cache   *cache.Cache[any]
	limiter *ratelimit.Limiter
	metrics Recorder
	logger  *slog.Logger
	config  Config
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option はClientの生成オプション。
type Option func(*Client)

// WithRecorder はメトリクスの記録先を設定する。
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleep はリトライ待機関数を差し替える。テスト用。
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// NewClient は新しいClientを生成する。
// limiterがnilの場合はレート制限を適用しない。
func NewClient(c *cache.Cache[any], limiter *ratelimit.Limiter, config Config, opts ...Option) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Attempts <= 0 {
		config.Attempts = DefaultAttempts
	}
	if config.BaseBackoff < 0 {
		config.BaseBackoff = 0
	}

	client := &Client{
		cache:   c,
		limiter: limiter,
		metrics: nopRecorder{},
		logger:  slog.Default(),
		config:  config,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Request は1回の論理的なリモート呼び出しを表す。
type Request[T any] struct {
	// Op は操作名。ログ、メトリクス、キャッシュキーの接頭辞に使う。
	Op string
	// Params はキャッシュキーの導出に使うパラメータ。
	Params any
	// CacheKey を指定した場合はKey(Op, Params)の代わりに使う。
	CacheKey string
	// Call は実際のリモート呼び出し。
	Call func(ctx context.Context) (T, error)
	// Cache がtrueの場合、成功結果をキャッシュし、次回以降はキャッシュから返す。
	Cache bool
	// TTL はキャッシュの有効期間。0の場合はキャッシュのデフォルト値。
	TTL time.Duration
	// AllowEmpty がtrueの場合、空の結果を正常な応答として扱う。
	AllowEmpty bool
	// Timeout と Attempts は0の場合Clientの設定を使う。
	Timeout  time.Duration
	Attempts int
	// RateKey はレート制限のキー。空の場合はOp。
	RateKey string
}

// Do はreqを実行する。
// キャッシュヒット時はリモート呼び出しもレート制限の判定も行わない。
// リトライ可能なエラーの場合は指数バックオフで再試行し、
// 最後の試行のエラーを分類済みのmodel.APIErrorとして返す。
func Do[T any](ctx context.Context, c *Client, req Request[T]) (T, error) {
	var zero T

	key := req.CacheKey
	if key == "" {
		key = Key(req.Op, req.Params)
	}

	if req.Cache && c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if v, ok := cached.(T); ok {
				c.metrics.RecordCacheLookup(req.Op, true)
				return v, nil
			}
		}
		c.metrics.RecordCacheLookup(req.Op, false)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	attempts := req.Attempts
	if attempts <= 0 {
		attempts = c.config.Attempts
	}
	rateKey := req.RateKey
	if rateKey == "" {
		rateKey = req.Op
	}

	var lastErr *model.APIError
	for attempt := 0; attempt < attempts; attempt++ {
		if c.limiter != nil && !c.limiter.Allow(rateKey) {
			c.metrics.RecordRateLimited(c.limiter.Name())
			c.logger.Warn("remote call rate limited",
				slog.String("op", req.Op),
				slog.String("rate_key", rateKey),
			)
			return zero, model.NewRateLimitedError(rateKey)
		}

		start := time.Now()
		result, err := callWithTimeout(ctx, req.Call, timeout)
		if err == nil && !req.AllowEmpty && isEmpty(result) {
			err = model.NewEmptyResponseError(req.Op)
		}
		elapsed := time.Since(start)

		if err == nil {
			c.metrics.RecordRemoteCall(req.Op, "success", elapsed)
			if req.Cache && c.cache != nil && !isEmpty(result) {
				if req.TTL > 0 {
					c.cache.SetWithTTL(key, result, req.TTL)
				} else {
					c.cache.Set(key, result)
				}
			}
			return result, nil
		}

		lastErr = Classify(err)
		c.metrics.RecordRemoteCall(req.Op, string(lastErr.Kind), elapsed)
		c.logger.Warn("remote call failed",
			slog.String("op", req.Op),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.String("kind", string(lastErr.Kind)),
			slog.String("error", lastErr.Error()),
		)

		if !lastErr.Retryable() || attempt == attempts-1 || ctx.Err() != nil {
			break
		}

		c.metrics.RecordRetry(req.Op)
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			break
		}
	}

	return zero, lastErr
}

// Invalidate はprefixで始まるキャッシュエントリを全て削除する。
func (c *Client) Invalidate(prefix string) int {
	if c.cache == nil {
		return 0
	}
	return c.cache.DeletePrefix(prefix)
}

// backoff はattempt回目（0始まり）の失敗後の待機時間を返す。
func (c *Client) backoff(attempt int) time.Duration {
	return c.config.BaseBackoff * time.Duration(1<<attempt)
}

type callResult[T any] struct {
	value T
	err   error
}

// callWithTimeout はcallをtimeoutで打ち切る。
// 打ち切られた呼び出しのゴルーチンは結果をバッファ付きチャネルに書いて終了する。
func callWithTimeout[T any](ctx context.Context, call func(ctx context.Context) (T, error), timeout time.Duration) (T, error) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		v, err := call(callCtx)
		done <- callResult[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, model.NewTimeoutError(timeout)
	}
}

// isEmpty は結果がデータを含まないかを返す。
// nilのポインタ・マップ・スライス・インターフェースを空とみなす。
// 長さ0の非nilスライスは有効な結果として扱う。
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
