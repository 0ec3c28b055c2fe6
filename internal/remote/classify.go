package remote

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"

	"github.com/hitoshi/hrportal/internal/model"
)

// PostgreSQLのSQLSTATEコード
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqNotNullViolation    = "23502"
	pqCheckViolation      = "23514"
	pqAdminShutdown       = "57P01"
	pqCrashShutdown       = "57P02"
	pqCannotConnectNow    = "57P03"

	pqClassConnection = "08"
	pqClassDataError  = "22"
)

// Classify はリモート呼び出しのエラーをmodel.APIErrorに分類する。
// プロバイダ固有のエラーコードを参照するのはこの関数だけとし、
// 呼び出し側は分類済みのKindのみで判断する。
func Classify(err error) *model.APIError {
	if err == nil {
		return nil
	}

	if apiErr, ok := model.AsAPIError(err); ok {
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		apiErr := model.NewTimeoutError(0)
		apiErr.Err = err
		return apiErr
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPQ(pqErr)
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return model.NewConnectivityError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			apiErr := model.NewTimeoutError(0)
			apiErr.Err = err
			return apiErr
		}
		return model.NewConnectivityError(err)
	}

	return model.NewInternalError(err)
}

// classifyPQ はPostgreSQLのSQLSTATEをエラー分類に変換する。
func classifyPQ(pqErr *pq.Error) *model.APIError {
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		return model.NewDuplicateEntryError(pqErr)
	case pqForeignKeyViolation:
		return model.NewReferenceNotFoundError(pqErr)
	case pqNotNullViolation, pqCheckViolation:
		apiErr := model.NewValidationError(pqErr.Message)
		apiErr.Err = pqErr
		return apiErr
	case pqAdminShutdown, pqCrashShutdown, pqCannotConnectNow:
		return model.NewConnectivityError(pqErr)
	}

	switch string(pqErr.Code.Class()) {
	case pqClassConnection:
		return model.NewConnectivityError(pqErr)
	case pqClassDataError:
		apiErr := model.NewValidationError(pqErr.Message)
		apiErr.Err = pqErr
		return apiErr
	}

	return model.NewInternalError(pqErr)
}
