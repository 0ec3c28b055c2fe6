package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind はエラーの分類タグ。
// リモートストアのプロバイダ固有コードは境界で一度だけErrorKindに変換し、
// 内部ロジックはこのタグのみを参照する。
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindActiveSessionExists ErrorKind = "active_session_exists"
	KindNoActiveSession     ErrorKind = "no_active_session"
	KindConnectivity        ErrorKind = "connectivity"
	KindConflict            ErrorKind = "conflict"
	KindTimeout             ErrorKind = "timeout"
	KindEmptyResponse       ErrorKind = "empty_response"
	KindRateLimited         ErrorKind = "rate_limited"
	KindNotFound            ErrorKind = "not_found"
	KindUnauthorized        ErrorKind = "unauthorized"
	KindInternal            ErrorKind = "internal"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     ErrorKind // エラー分類
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: validation, duty, store, system
	Action   string    // ユーザー向け対処方法
	Err      error     // 原因となったエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable はリトライ対象の分類かどうかを返す。
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindConnectivity, KindTimeout, KindEmptyResponse, KindInternal:
		return true
	default:
		return false
	}
}

// 定義済みエラーコード
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeActiveSessionExists = "ACTIVE_SESSION_EXISTS"
	ErrCodeNoActiveSession     = "NO_ACTIVE_SESSION"
	ErrCodeStoreUnavailable    = "STORE_UNAVAILABLE"
	ErrCodeDuplicateEntry      = "DUPLICATE_ENTRY"
	ErrCodeReferenceNotFound   = "REFERENCE_NOT_FOUND"
	ErrCodeRequestTimeout      = "REQUEST_TIMEOUT"
	ErrCodeEmptyResponse       = "EMPTY_RESPONSE"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeEmployeeNotFound    = "EMPLOYEE_NOT_FOUND"
	ErrCodeEntryNotFound       = "ENTRY_NOT_FOUND"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeNotificationFailed  = "NOTIFICATION_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// AsAPIError はerrのチェーンからAPIErrorを取り出す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf はerrの分類を返す。APIErrorを含まない場合はKindInternal。
func KindOf(err error) ErrorKind {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Kind
	}
	return KindInternal
}

// IsKind はerrが指定分類かどうかを返す。
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable はerrがリトライ対象かどうかを返す。
func IsRetryable(err error) bool {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Retryable()
	}
	return err != nil
}

// NewValidationError は入力不正エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewActiveSessionExistsError は勤務中セッションが既に存在するエラーを生成する。
func NewActiveSessionExistsError(employeeID string) *APIError {
	return &APIError{
		Kind:     KindActiveSessionExists,
		Code:     ErrCodeActiveSessionExists,
		Message:  fmt.Sprintf("従業員は既に勤務中です: %s", employeeID),
		Category: "duty",
		Action:   "勤務を終了してから再度開始してください。",
	}
}

// NewNoActiveSessionError は勤務中セッションが存在しないエラーを生成する。
func NewNoActiveSessionError(employeeID string) *APIError {
	return &APIError{
		Kind:     KindNoActiveSession,
		Code:     ErrCodeNoActiveSession,
		Message:  fmt.Sprintf("勤務中のセッションが見つかりません: %s", employeeID),
		Category: "duty",
		Action:   "先に勤務を開始してください。",
	}
}

// NewConnectivityError はリモートストアへの接続失敗エラーを生成する。
func NewConnectivityError(cause error) *APIError {
	return &APIError{
		Kind:     KindConnectivity,
		Code:     ErrCodeStoreUnavailable,
		Message:  "データベースに接続できません。",
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      cause,
	}
}

// NewDuplicateEntryError は一意制約違反エラーを生成する。
func NewDuplicateEntryError(cause error) *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeDuplicateEntry,
		Message:  "同じデータが既に登録されています。",
		Category: "store",
		Action:   "最新の状態を読み込み直してください。",
		Err:      cause,
	}
}

// NewReferenceNotFoundError は外部キー違反（参照先なし）エラーを生成する。
func NewReferenceNotFoundError(cause error) *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeReferenceNotFound,
		Message:  "参照先のデータが見つかりません。",
		Category: "store",
		Action:   "従業員が削除されていないか確認してください。",
		Err:      cause,
	}
}

// NewTimeoutError はリクエストタイムアウトエラーを生成する。
// timeoutが0の場合はメッセージに時間を含めない。
func NewTimeoutError(timeout time.Duration) *APIError {
	msg := "リクエストがタイムアウトしました。"
	if timeout > 0 {
		msg = fmt.Sprintf("リクエストがタイムアウトしました（%s）。", timeout)
	}
	return &APIError{
		Kind:     KindTimeout,
		Code:     ErrCodeRequestTimeout,
		Message:  msg,
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewEmptyResponseError はレスポンスにデータが含まれないエラーを生成する。
func NewEmptyResponseError(op string) *APIError {
	return &APIError{
		Kind:     KindEmptyResponse,
		Code:     ErrCodeEmptyResponse,
		Message:  fmt.Sprintf("データが返されませんでした: %s", op),
		Category: "store",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError(key string) *APIError {
	return &APIError{
		Kind:     KindRateLimited,
		Code:     ErrCodeRateLimitExceeded,
		Message:  fmt.Sprintf("リクエストが多すぎます: %s", key),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewEmployeeNotFoundError は従業員が見つからないエラーを生成する。
func NewEmployeeNotFoundError(employeeID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeEmployeeNotFound,
		Message:  fmt.Sprintf("従業員が見つかりません: %s", employeeID),
		Category: "validation",
		Action:   "従業員IDを確認してください。",
	}
}

// NewEntryNotFoundError は勤務記録が見つからないエラーを生成する。
func NewEntryNotFoundError(entryID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeEntryNotFound,
		Message:  fmt.Sprintf("勤務記録が見つかりません: %s", entryID),
		Category: "validation",
		Action:   "最新の状態を読み込み直してください。",
	}
}

// NewUnauthorizedError は管理者トークンが不正なエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Kind:     KindUnauthorized,
		Code:     ErrCodeUnauthorized,
		Message:  "認証に失敗しました。",
		Category: "auth",
		Action:   "管理者トークンを確認してください。",
	}
}

// NewNotificationFailedError は通知先への送信失敗エラーを生成する。
func NewNotificationFailedError(cause error) *APIError {
	return &APIError{
		Kind:     KindEmptyResponse,
		Code:     ErrCodeNotificationFailed,
		Message:  "通知を送信できませんでした。",
		Category: "notification",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      cause,
	}
}

// NewInternalError は分類不能なエラーを生成する。
func NewInternalError(cause error) *APIError {
	return &APIError{
		Kind:     KindInternal,
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Err:      cause,
	}
}
