package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
	"github.com/hitoshi/hrportal/internal/ratelimit"
)

// LimitRecorder はレート制限による拒否の記録先。metrics.Collectorが実装する。
type LimitRecorder interface {
	RecordRateLimited(limiter string)
}

// NewRateLimitMiddleware はクライアントアドレス単位のスライディングウィンドウ制限を適用する。
// 上限を超えたリクエストには429とRetry-Afterヘッダーを返す。
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, logger *slog.Logger, recorder LimitRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if !limiter.Allow(key) {
				if recorder != nil {
					recorder.RecordRateLimited(limiter.Name())
				}
				logger.Warn("rate limit exceeded",
					slog.String("remote_addr", key),
					slog.String("limit_type", limiter.Name()),
				)
				writeRateLimitResponse(w, limiter.RetryAfter(key), limiter.Name())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP はリクエスト元のアドレスを返す。
// プロキシ配下ではchiのRealIPミドルウェアでRemoteAddrを書き換えてから使う。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーには次に許可されるまでの秒数（切り上げ、最低1秒）を設定する。
func writeRateLimitResponse(w http.ResponseWriter, retryAfter time.Duration, limiter string) {
	retryAfterSec := int(math.Ceil(retryAfter.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	apiErr := model.NewRateLimitedError(limiter)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}
