package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/hrportal/internal/duty"
	"github.com/hitoshi/hrportal/internal/model"
	"github.com/hitoshi/hrportal/internal/notify"
	"github.com/hitoshi/hrportal/internal/ratelimit"
)

// --- モック定義 ---

// mockService はServiceInterfaceのモック実装。
type mockService struct {
	getEmployeeFn   func(ctx context.Context, id string) (*model.Employee, error)
	startDutyFn     func(ctx context.Context, emp *model.Employee) (*model.WorkingHoursEntry, error)
	endDutyFn       func(ctx context.Context, emp *model.Employee) ([]model.WorkingHoursEntry, error)
	listEntriesFn   func(ctx context.Context, employeeID string, month duty.Month) ([]model.WorkingHoursEntry, error)
	createEntriesFn func(ctx context.Context, employeeID string, entries []duty.ManualEntry) ([]model.WorkingHoursEntry, error)
	updateEntryFn   func(ctx context.Context, employeeID, entryID string, checkIn, checkOut time.Time) (*model.WorkingHoursEntry, error)
	deleteEntryFn   func(ctx context.Context, employeeID, entryID string) error
	listEmployeesFn func(ctx context.Context) ([]*model.Employee, error)
	monthEntriesFn  func(ctx context.Context, month duty.Month) ([]model.WorkingHoursEntry, error)
}

func (m *mockService) Location() *time.Location { return time.UTC }

func (m *mockService) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	if m.getEmployeeFn != nil {
		return m.getEmployeeFn(ctx, id)
	}
	return &model.Employee{ID: id, Name: "Budi", Position: "Medic"}, nil
}

func (m *mockService) StartDuty(ctx context.Context, emp *model.Employee) (*model.WorkingHoursEntry, error) {
	if m.startDutyFn != nil {
		return m.startDutyFn(ctx, emp)
	}
	return nil, nil
}

func (m *mockService) EndDuty(ctx context.Context, emp *model.Employee) ([]model.WorkingHoursEntry, error) {
	if m.endDutyFn != nil {
		return m.endDutyFn(ctx, emp)
	}
	return nil, nil
}

func (m *mockService) ListEntries(ctx context.Context, employeeID string, month duty.Month) ([]model.WorkingHoursEntry, error) {
	if m.listEntriesFn != nil {
		return m.listEntriesFn(ctx, employeeID, month)
	}
	return nil, nil
}

func (m *mockService) CreateEntries(ctx context.Context, employeeID string, entries []duty.ManualEntry) ([]model.WorkingHoursEntry, error) {
	if m.createEntriesFn != nil {
		return m.createEntriesFn(ctx, employeeID, entries)
	}
	return nil, nil
}

func (m *mockService) UpdateEntry(ctx context.Context, employeeID, entryID string, checkIn, checkOut time.Time) (*model.WorkingHoursEntry, error) {
	if m.updateEntryFn != nil {
		return m.updateEntryFn(ctx, employeeID, entryID, checkIn, checkOut)
	}
	return nil, nil
}

func (m *mockService) DeleteEntry(ctx context.Context, employeeID, entryID string) error {
	if m.deleteEntryFn != nil {
		return m.deleteEntryFn(ctx, employeeID, entryID)
	}
	return nil
}

func (m *mockService) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	if m.listEmployeesFn != nil {
		return m.listEmployeesFn(ctx)
	}
	return nil, nil
}

func (m *mockService) MonthEntries(ctx context.Context, month duty.Month) ([]model.WorkingHoursEntry, error) {
	if m.monthEntriesFn != nil {
		return m.monthEntriesFn(ctx, month)
	}
	return nil, nil
}

// mockNotifier はnotify.Notifierのモック実装。
type mockNotifier struct {
	notify.Nop
	leaveFn       func(ctx context.Context, event notify.LeaveEvent) error
	resignationFn func(ctx context.Context, event notify.ResignationEvent) error
}

func (m *mockNotifier) LeaveRequest(ctx context.Context, event notify.LeaveEvent) error {
	if m.leaveFn != nil {
		return m.leaveFn(ctx, event)
	}
	return nil
}

func (m *mockNotifier) Resignation(ctx context.Context, event notify.ResignationEvent) error {
	if m.resignationFn != nil {
		return m.resignationFn(ctx, event)
	}
	return nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error { return m.err }

// --- ヘルパー ---

const (
	testAdminToken = "test-admin-token"
	testEmployeeID = "11111111-1111-1111-1111-111111111111"
)

// testNow はハンドラーが当月を決めるための固定時刻。
var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDeps(svc *mockService, notifier notify.Notifier) *RouterDeps {
	return &RouterDeps{
		Service:    svc,
		Notifier:   notifier,
		Limiters:   ratelimit.NewSet(ratelimit.DefaultSetConfig()),
		AdminToken: testAdminToken,
		Logger:     discardLogger(),
		Now:        func() time.Time { return testNow },
	}
}

func newTestRouter(svc *mockService, notifier notify.Notifier) http.Handler {
	return NewRouter(newTestDeps(svc, notifier))
}

// do はrouterにリクエストを送り、レスポンスを返す。admin=trueの場合は管理者トークンを付ける。
func do(t *testing.T, router http.Handler, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Token", testAdminToken)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func timePtr(t time.Time) *time.Time { return &t }
