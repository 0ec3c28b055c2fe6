package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/hitoshi/hrportal/internal/model"
	"github.com/hitoshi/hrportal/internal/ratelimit"
)

// AdminTokenHeader は管理者トークンを渡すリクエストヘッダー。
const AdminTokenHeader = "X-Admin-Token"

// NewAdminMiddleware は管理者トークンを検証するミドルウェアを返す。
// 認証の失敗はクライアントアドレス単位でauthLimiterに記録し、
// 上限に達したアドレスはトークンの正否によらず429で拒否する。
func NewAdminMiddleware(token string, authLimiter *ratelimit.Limiter, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if authLimiter != nil && authLimiter.Remaining(key) == 0 {
				logger.Warn("admin auth locked out", slog.String("remote_addr", key))
				writeRateLimitResponse(w, authLimiter.RetryAfter(key), authLimiter.Name())
				return
			}

			given := r.Header.Get(AdminTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				if authLimiter != nil {
					authLimiter.Allow(key)
				}
				logger.Warn("admin auth failed",
					slog.String("remote_addr", key),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
