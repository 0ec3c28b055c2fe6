// Package sweep はインメモリのキャッシュとレートリミッターの定期掃除ジョブを提供する。
// どちらも期限切れのデータを遅延削除するため、参照されなくなったキーは
// このジョブが破棄するまでメモリに残る。
package sweep

import (
	"context"
	"log/slog"
	"time"
)

// LimiterSweeper は期限切れのキーを破棄するリミッター。ratelimit.Setが実装する。
type LimiterSweeper interface {
	ClearExpired() int
}

// CachePurger は期限切れのエントリを破棄するキャッシュ。cache.Cacheが実装する。
type CachePurger interface {
	Purge() int
}

// Result は1回の掃除結果。
type Result struct {
	LimiterKeys  int
	CacheEntries int
}

// Job は一定間隔でリミッターとキャッシュを掃除する。
type Job struct {
	limiters LimiterSweeper
	cache    CachePurger
	logger   *slog.Logger
}

// NewJob は新しいJobを生成する。limitersとcacheはnilでもよい。
// nilポインタの*ratelimit.Setと*cache.Cacheも掃除対象なしとして扱われる。
func NewJob(limiters LimiterSweeper, cache CachePurger, logger *slog.Logger) *Job {
	return &Job{
		limiters: limiters,
		cache:    cache,
		logger:   logger,
	}
}

// Start はinterval間隔のティッカーで掃除を実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("掃除ジョブを開始しました", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("掃除ジョブを停止しました")
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce は掃除を1回実行し、破棄した件数を返す。
func (j *Job) RunOnce() Result {
	var r Result
	if j.limiters != nil {
		r.LimiterKeys = j.limiters.ClearExpired()
	}
	if j.cache != nil {
		r.CacheEntries = j.cache.Purge()
	}

	if r.LimiterKeys > 0 || r.CacheEntries > 0 {
		j.logger.Debug("掃除が完了しました",
			slog.Int("limiter_keys", r.LimiterKeys),
			slog.Int("cache_entries", r.CacheEntries),
		)
	}
	return r
}
