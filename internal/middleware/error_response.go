package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/hrportal/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Kind:     model.KindInternal,
		Code:     model.ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// StatusCode はエラー種別に対応するHTTPステータスコードを返す。
func StatusCode(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindActiveSessionExists, model.KindNoActiveSession, model.KindConflict:
		return http.StatusConflict
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	case model.KindTimeout:
		return http.StatusGatewayTimeout
	case model.KindConnectivity:
		return http.StatusServiceUnavailable
	case model.KindEmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError はerrを分類して統一フォーマットで書き込む。
// model.APIErrorでないエラーと内部エラーは詳細を隠してログにのみ記録する。
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	apiErr, ok := model.AsAPIError(err)
	if !ok || apiErr.Kind == model.KindInternal {
		logger.Error("request failed", slog.String("error", err.Error()))
		WriteInternalServerError(w)
		return
	}

	status := StatusCode(apiErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("kind", string(apiErr.Kind)),
			slog.String("error", apiErr.Error()),
		)
	}
	WriteErrorResponse(w, status, apiErr)
}
