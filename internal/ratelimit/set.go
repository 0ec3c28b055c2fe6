package ratelimit

import "time"

// 用途別リミッター名
const (
	NameAPI    = "api"
	NameAuth   = "auth"
	NameExport = "export"
	NameNotify = "notify"
	NameStore  = "store"
)

// SetConfig は用途別リミッターの設定一式。
type SetConfig struct {
	API    Config
	Auth   Config
	Export Config
	Notify Config
	Store  Config
}

// DefaultSetConfig はデフォルトの用途別設定を返す。
// API全般 100 req/min、認証 5回/5分、エクスポート 10回/min、通知 30件/min、
// ストア呼び出し 操作ごとに600回/min。
func DefaultSetConfig() SetConfig {
	return SetConfig{
		API:    Config{MaxRequests: 100, Window: time.Minute},
		Auth:   Config{MaxRequests: 5, Window: 5 * time.Minute},
		Export: Config{MaxRequests: 10, Window: time.Minute},
		Notify: Config{MaxRequests: 30, Window: time.Minute},
		Store:  Config{MaxRequests: 600, Window: time.Minute},
	}
}

// Set は用途ごとに独立したリミッターをまとめたもの。
// プロセス起動時に1度だけ生成し、所有者が参照で保持する。
type Set struct {
	API    *Limiter
	Auth   *Limiter
	Export *Limiter
	Notify *Limiter
	Store  *Limiter
}

// NewSet は設定から用途別リミッターを生成する。
func NewSet(config SetConfig, opts ...Option) *Set {
	return &Set{
		API:    New(NameAPI, config.API, opts...),
		Auth:   New(NameAuth, config.Auth, opts...),
		Export: New(NameExport, config.Export, opts...),
		Notify: New(NameNotify, config.Notify, opts...),
		Store:  New(NameStore, config.Store, opts...),
	}
}

// All はすべてのリミッターを返す。
func (s *Set) All() []*Limiter {
	return []*Limiter{s.API, s.Auth, s.Export, s.Notify, s.Store}
}

// ClearExpired はすべてのリミッターの期限切れキーを破棄し、合計件数を返す。
// nilのSetに対しては何もせず0を返す。
func (s *Set) ClearExpired() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, l := range s.All() {
		total += l.ClearExpired()
	}
	return total
}
