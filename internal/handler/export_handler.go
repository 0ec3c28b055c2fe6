package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/hrportal/internal/duty"
	"github.com/hitoshi/hrportal/internal/export"
	"github.com/hitoshi/hrportal/internal/middleware"
	"github.com/hitoshi/hrportal/internal/model"
)

// ExportServiceInterface はExportHandlerが使用するサービスのインターフェース。
type ExportServiceInterface interface {
	Location() *time.Location
	ListEmployees(ctx context.Context) ([]*model.Employee, error)
	MonthEntries(ctx context.Context, month duty.Month) ([]model.WorkingHoursEntry, error)
}

// ExportHandler は月次勤務記録のスプレッドシート出力を扱う。
type ExportHandler struct {
	service ExportServiceInterface
	logger  *slog.Logger
	now     func() time.Time
}

// NewExportHandler は新しいExportHandlerを生成する。
func NewExportHandler(service ExportServiceInterface, logger *slog.Logger, now func() time.Time) *ExportHandler {
	if now == nil {
		now = time.Now
	}
	return &ExportHandler{service: service, logger: logger, now: now}
}

// Export は全従業員の月次勤務記録をxlsxで返す。
// GET /api/working-hours/export?month=YYYY-MM
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	loc := h.service.Location()
	month, err := monthParam(r, h.now(), loc)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	entries, err := h.service.MonthEntries(r.Context(), month)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	// ヘッダー送信後は失敗を返せないため、一度バッファに書き出す
	var buf bytes.Buffer
	if err := export.WriteMonth(&buf, month, employees, entries, loc); err != nil {
		middleware.WriteError(w, h.logger, fmt.Errorf("render workbook: %w", err))
		return
	}

	h.logger.Info("working hours exported",
		slog.String("month", month.String()),
		slog.Int("employees", len(employees)),
		slog.Int("entries", len(entries)),
	)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(month)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
