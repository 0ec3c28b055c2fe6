package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hrportal/internal/middleware"
	"github.com/hitoshi/hrportal/internal/model"
	"github.com/hitoshi/hrportal/internal/notify"
)

// 申請種別
const (
	requestKindLeave       = "leave"
	requestKindResignation = "resignation"
)

// NotificationHandler は休暇・退職申請の状態変更を通知先へ中継する。
type NotificationHandler struct {
	notifier notify.Notifier
	logger   *slog.Logger
	loc      *time.Location
}

// NewNotificationHandler は新しいNotificationHandlerを生成する。
// 日付はlocの0時として解釈する。
func NewNotificationHandler(notifier notify.Notifier, logger *slog.Logger, loc *time.Location) *NotificationHandler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationHandler{notifier: notifier, logger: logger, loc: loc}
}

type leaveRequest struct {
	Name      string `json:"name"`
	Position  string `json:"position"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type resignationRequest struct {
	Name        string `json:"name"`
	Position    string `json:"position"`
	Passport    string `json:"passport"`
	ReasonIC    string `json:"reason_ic"`
	ReasonOOC   string `json:"reason_ooc"`
	Status      string `json:"status"`
	RequestDate string `json:"request_date"`
}

// Relay は申請種別に応じた通知を送信する。
// POST /api/requests/{kind}/notifications
func (h *NotificationHandler) Relay(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	var err error
	switch kind {
	case requestKindLeave:
		err = h.relayLeave(r)
	case requestKindResignation:
		err = h.relayResignation(r)
	default:
		err = model.NewValidationError(fmt.Sprintf("不明な申請種別です: %q", kind))
	}
	if err != nil {
		if _, ok := model.AsAPIError(err); !ok {
			err = model.NewNotificationFailedError(err)
		}
		middleware.WriteError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *NotificationHandler) relayLeave(r *http.Request) error {
	var req leaveRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := validateApplicant(req.Name, req.Status); err != nil {
		return err
	}

	start, err := h.optionalDate("start_date", req.StartDate)
	if err != nil {
		return err
	}
	end, err := h.optionalDate("end_date", req.EndDate)
	if err != nil {
		return err
	}
	if start != nil && end != nil && end.Before(*start) {
		return model.NewValidationError("end_dateはstart_date以降である必要があります。")
	}

	return h.notifier.LeaveRequest(r.Context(), notify.LeaveEvent{
		Name:      req.Name,
		Position:  req.Position,
		Reason:    req.Reason,
		Status:    model.RequestStatus(req.Status),
		StartDate: start,
		EndDate:   end,
	})
}

func (h *NotificationHandler) relayResignation(r *http.Request) error {
	var req resignationRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := validateApplicant(req.Name, req.Status); err != nil {
		return err
	}

	requestDate, err := h.optionalDate("request_date", req.RequestDate)
	if err != nil {
		return err
	}
	if requestDate == nil {
		return model.NewValidationError("request_dateは必須です。")
	}

	return h.notifier.Resignation(r.Context(), notify.ResignationEvent{
		Name:        req.Name,
		Position:    req.Position,
		Passport:    req.Passport,
		ReasonIC:    req.ReasonIC,
		ReasonOOC:   req.ReasonOOC,
		Status:      model.RequestStatus(req.Status),
		RequestDate: *requestDate,
	})
}

// optionalDate は "2006-01-02" 形式の日付を解析する。空の場合はnilを返す。
func (h *NotificationHandler) optionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, h.loc)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("%sの形式が不正です（YYYY-MM-DD）: %q", field, raw))
	}
	return &t, nil
}

// validateApplicant は申請者名と審査状態を検証する。
func validateApplicant(name, status string) error {
	if strings.TrimSpace(name) == "" {
		return model.NewValidationError("nameは必須です。")
	}
	if !model.RequestStatus(status).Valid() {
		return model.NewValidationError(fmt.Sprintf("不明な申請状態です: %q", status))
	}
	return nil
}
