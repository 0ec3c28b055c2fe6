package duty

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hrportal/internal/model"
	"github.com/hitoshi/hrportal/internal/notify"
	"github.com/hitoshi/hrportal/internal/remote"
	"github.com/hitoshi/hrportal/internal/repository"
)

// defaultNotifyTimeout は非同期通知1件あたりのタイムアウト。
const defaultNotifyTimeout = 10 * time.Second

// キャッシュキーの接頭辞
const (
	listOpPrefix      = "working_hours.list:"
	employeesListOp   = "employees.list"
	workingHoursRange = "working_hours.range"
)

// Recorder は勤務セッションのメトリクスを記録するインターフェース。
// metrics.Collectorが実装する。
type Recorder interface {
	RecordSessionStarted()
	RecordSessionEnded(hours float64, pieces int)
	RecordEntriesCreated(count int)
	RecordNotification(kind string, ok bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordSessionStarted()           {}
func (nopRecorder) RecordSessionEnded(float64, int) {}
func (nopRecorder) RecordEntriesCreated(int)        {}
func (nopRecorder) RecordNotification(string, bool) {}

// ManualEntry は管理者が登録する締め済みの勤務記録。
type ManualEntry struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Service は勤務セッションの開始・終了と勤務記録の管理を提供する。
// 従業員ごとに勤務中のセッションを高々1件に保つ。
type Service struct {
	employees repository.EmployeeRepository
	hours     repository.WorkingHoursRepository
	remote    *remote.Client
	notifier  notify.Notifier
	metrics   Recorder
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time
	locks     *keyedMutex

	dispatch      func(func())
	notifyTimeout time.Duration
}

// Option はServiceの生成オプション。
type Option func(*Service)

// WithLocation は暦日と月の判定に使うタイムゾーンを設定する。
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRecorder はメトリクスの記録先を設定する。
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDispatcher は通知の実行方法を差し替える。デフォルトはゴルーチンでの非同期実行。
func WithDispatcher(dispatch func(func())) Option {
	return func(s *Service) {
		s.dispatch = dispatch
	}
}

// NewService は新しいServiceを生成する。notifierがnilの場合は通知しない。
func NewService(
	employees repository.EmployeeRepository,
	hours repository.WorkingHoursRepository,
	client *remote.Client,
	notifier notify.Notifier,
	opts ...Option,
) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Service{
		employees:     employees,
		hours:         hours,
		remote:        client,
		notifier:      notifier,
		metrics:       nopRecorder{},
		logger:        slog.Default(),
		loc:           time.UTC,
		now:           time.Now,
		locks:         newKeyedMutex(),
		dispatch:      func(f func()) { go f() },
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location は暦日の判定に使うタイムゾーンを返す。
func (s *Service) Location() *time.Location {
	return s.loc
}

// StartDuty は従業員の勤務を開始する。
// employeeは呼び出し側が保持している従業員のスナップショットで、
// 最新の記録が勤務中であれば書き込みを行わずにActiveSessionExistsを返す。
// スナップショットが古い場合に備え、書き込み前にストア上の勤務中の記録も確認する。
func (s *Service) StartDuty(ctx context.Context, employee *model.Employee) (*model.WorkingHoursEntry, error) {
	if err := validateEmployee(employee); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, employee.ID)
	if err != nil {
		return nil, remote.Classify(err)
	}
	defer unlock()

	if last := employee.LastEntry(); last != nil && last.IsOpen() {
		return nil, model.NewActiveSessionExistsError(employee.ID)
	}

	open, err := s.findOpen(ctx, employee.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, model.NewActiveSessionExistsError(employee.ID)
	}

	now := s.clock()
	entry := &model.WorkingHoursEntry{
		ID:         uuid.NewString(),
		EmployeeID: employee.ID,
		Date:       model.CalendarDay(now, s.loc),
		CheckIn:    now,
	}

	saved, err := remote.Do(ctx, s.remote, remote.Request[*model.WorkingHoursEntry]{
		Op:      "working_hours.insert",
		RateKey: "working_hours.write",
		Call: func(ctx context.Context) (*model.WorkingHoursEntry, error) {
			return s.hours.Insert(ctx, entry)
		},
	})
	if err != nil {
		if !model.IsKind(err, model.KindConflict) {
			return nil, err
		}
		// 一意インデックス違反: 別の経路で先に勤務が開始された
		current, findErr := s.findOpen(ctx, employee.ID)
		if findErr != nil {
			return nil, findErr
		}
		if current == nil || current.ID != entry.ID {
			return nil, model.NewActiveSessionExistsError(employee.ID)
		}
		saved = current
	}

	s.invalidate(employee.ID)
	s.metrics.RecordSessionStarted()
	s.logger.Info("duty started",
		slog.String("employee_id", employee.ID),
		slog.String("entry_id", saved.ID),
	)

	event := notify.DutyEvent{Name: employee.Name, Position: employee.Position, At: now}
	s.notifyAsync("check_in", func(ctx context.Context) error {
		return s.notifier.CheckIn(ctx, event)
	})

	return saved, nil
}

// EndDuty は従業員の勤務を終了し、締めた記録を返す。
// 経過時間が48時間を超える場合は24時間以下の記録に分割し、
// 元の記録を最初の区間として締め、残りを新しい記録として同時に保存する。
func (s *Service) EndDuty(ctx context.Context, employee *model.Employee) ([]model.WorkingHoursEntry, error) {
	if err := validateEmployee(employee); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, employee.ID)
	if err != nil {
		return nil, remote.Classify(err)
	}
	defer unlock()

	if last := employee.LastEntry(); last == nil || !last.IsOpen() {
		return nil, model.NewNoActiveSessionError(employee.ID)
	}

	open, err := s.findOpen(ctx, employee.ID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, model.NewNoActiveSessionError(employee.ID)
	}

	now := s.clock()
	total, err := Hours(open.CheckIn, now)
	if err != nil {
		return nil, err
	}

	closeAt, closeHours := now, total
	var extra []model.WorkingHoursEntry
	if NeedsLongSessionSplit(open.CheckIn, now) {
		chunks, err := SplitByMaxDuration(open.CheckIn, now, MaxSessionDuration)
		if err != nil {
			return nil, err
		}
		closeAt, closeHours = chunks[0].End, chunks[0].Hours()
		extra = s.chunkEntries(employee.ID, chunks[1:])
		s.logger.Warn("long duty session split",
			slog.String("employee_id", employee.ID),
			slog.String("entry_id", open.ID),
			slog.Float64("total_hours", total),
			slog.Int("pieces", len(chunks)),
		)
	}

	closed, err := remote.Do(ctx, s.remote, remote.Request[[]model.WorkingHoursEntry]{
		Op:         "working_hours.close",
		RateKey:    "working_hours.write",
		AllowEmpty: true,
		Call: func(ctx context.Context) ([]model.WorkingHoursEntry, error) {
			return s.hours.Close(ctx, open.ID, closeAt, closeHours, extra)
		},
	})
	if err != nil {
		return nil, err
	}
	if len(closed) == 0 {
		// 確認後に別の経路で締められた
		return nil, model.NewNoActiveSessionError(employee.ID)
	}

	s.invalidate(employee.ID)
	s.metrics.RecordSessionEnded(total, len(closed))
	s.logger.Info("duty ended",
		slog.String("employee_id", employee.ID),
		slog.String("entry_id", open.ID),
		slog.Float64("total_hours", total),
	)

	event := notify.DutyEvent{Name: employee.Name, Position: employee.Position, At: now, TotalHours: total}
	s.notifyAsync("check_out", func(ctx context.Context) error {
		return s.notifier.CheckOut(ctx, event)
	})

	return closed, nil
}

// CreateEntries は締め済みの勤務記録をまとめて登録する。
// 月を跨ぐ記録は月ごとに分割してから保存する。
func (s *Service) CreateEntries(ctx context.Context, employeeID string, entries []ManualEntry) ([]model.WorkingHoursEntry, error) {
	if err := validateEmployeeID(employeeID); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, model.NewValidationError("勤務記録が1件もありません")
	}

	var rows []model.WorkingHoursEntry
	for i, m := range entries {
		if m.CheckIn.IsZero() || m.CheckOut.IsZero() {
			return nil, model.NewValidationError(fmt.Sprintf("%d件目: 出勤時刻と退勤時刻は必須です", i+1))
		}
		intervals, err := SplitAcrossMonths(m.CheckIn, m.CheckOut, s.loc)
		if err != nil {
			return nil, err
		}
		rows = append(rows, MonthSplitEntries(employeeID, intervals, s.loc)...)
	}
	for i := range rows {
		rows[i].ID = uuid.NewString()
	}

	saved, err := remote.Do(ctx, s.remote, remote.Request[[]model.WorkingHoursEntry]{
		Op:      "working_hours.insert_batch",
		RateKey: "working_hours.write",
		Call: func(ctx context.Context) ([]model.WorkingHoursEntry, error) {
			return s.hours.InsertBatch(ctx, rows)
		},
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(employeeID)
	s.metrics.RecordEntriesCreated(len(saved))
	s.logger.Info("working hours created",
		slog.String("employee_id", employeeID),
		slog.Int("requested", len(entries)),
		slog.Int("stored", len(saved)),
	)
	return saved, nil
}

// UpdateEntry は締め済みの勤務記録の出退勤時刻を修正し、合計時間を再計算する。
// 修正後の記録が月を跨ぐ場合は検証エラーを返す。
func (s *Service) UpdateEntry(ctx context.Context, employeeID, entryID string, checkIn, checkOut time.Time) (*model.WorkingHoursEntry, error) {
	if err := validateEmployeeID(employeeID); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(entryID); err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("勤務記録IDが不正です: %q", entryID))
	}

	hours, err := Hours(checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	intervals, err := SplitAcrossMonths(checkIn, checkOut, s.loc)
	if err != nil {
		return nil, err
	}
	if len(intervals) > 1 {
		return nil, model.NewValidationError("月を跨ぐ修正はできません。削除して再登録してください")
	}

	out := checkOut
	entry := &model.WorkingHoursEntry{
		ID:         entryID,
		EmployeeID: employeeID,
		Date:       model.CalendarDay(checkIn, s.loc),
		CheckIn:    checkIn,
		CheckOut:   &out,
		TotalHours: hours,
	}

	updated, err := remote.Do(ctx, s.remote, remote.Request[*model.WorkingHoursEntry]{
		Op:         "working_hours.update",
		RateKey:    "working_hours.write",
		AllowEmpty: true,
		Call: func(ctx context.Context) (*model.WorkingHoursEntry, error) {
			return s.hours.Update(ctx, entry)
		},
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, model.NewEntryNotFoundError(entryID)
	}

	s.invalidate(employeeID)
	return updated, nil
}

// DeleteEntry は勤務記録を1件削除する。
func (s *Service) DeleteEntry(ctx context.Context, employeeID, entryID string) error {
	if err := validateEmployeeID(employeeID); err != nil {
		return err
	}
	if _, err := uuid.Parse(entryID); err != nil {
		return model.NewValidationError(fmt.Sprintf("勤務記録IDが不正です: %q", entryID))
	}

	deleted, err := remote.Do(ctx, s.remote, remote.Request[bool]{
		Op:      "working_hours.delete",
		RateKey: "working_hours.write",
		Call: func(ctx context.Context) (bool, error) {
			return s.hours.Delete(ctx, employeeID, entryID)
		},
	})
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewEntryNotFoundError(entryID)
	}

	s.invalidate(employeeID)
	return nil
}

// ListEntries は従業員の指定月の勤務記録を返す。結果はキャッシュされる。
func (s *Service) ListEntries(ctx context.Context, employeeID string, month Month) ([]model.WorkingHoursEntry, error) {
	if err := validateEmployeeID(employeeID); err != nil {
		return nil, err
	}
	from, to := month.Range(s.loc)

	return remote.Do(ctx, s.remote, remote.Request[[]model.WorkingHoursEntry]{
		Op:      listOpPrefix + employeeID,
		Params:  map[string]string{"month": month.String(), "tz": s.loc.String()},
		RateKey: "working_hours.list",
		Cache:   true,
		Call: func(ctx context.Context) ([]model.WorkingHoursEntry, error) {
			return s.hours.ListByEmployee(ctx, employeeID, from, to)
		},
	})
}

// MonthEntries は全従業員の指定月の勤務記録を返す。
func (s *Service) MonthEntries(ctx context.Context, month Month) ([]model.WorkingHoursEntry, error) {
	from, to := month.Range(s.loc)

	return remote.Do(ctx, s.remote, remote.Request[[]model.WorkingHoursEntry]{
		Op:     workingHoursRange,
		Params: map[string]string{"month": month.String()},
		Call: func(ctx context.Context) ([]model.WorkingHoursEntry, error) {
			return s.hours.ListBetween(ctx, from, to)
		},
	})
}

// GetEmployee は従業員を勤務記録付きで取得する。
// 勤務状態の判定に使うためキャッシュしない。
func (s *Service) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	if err := validateEmployeeID(id); err != nil {
		return nil, err
	}

	employee, err := remote.Do(ctx, s.remote, remote.Request[*model.Employee]{
		Op:         "employees.get",
		AllowEmpty: true,
		Call: func(ctx context.Context) (*model.Employee, error) {
			return s.employees.FindByID(ctx, id)
		},
	})
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, model.NewEmployeeNotFoundError(id)
	}
	return employee, nil
}

// ListEmployees は全従業員を返す。結果はキャッシュされる。
func (s *Service) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	return remote.Do(ctx, s.remote, remote.Request[[]*model.Employee]{
		Op:    employeesListOp,
		Cache: true,
		Call: func(ctx context.Context) ([]*model.Employee, error) {
			return s.employees.List(ctx)
		},
	})
}

// findOpen はストア上の勤務中の記録を読み直す。
func (s *Service) findOpen(ctx context.Context, employeeID string) (*model.WorkingHoursEntry, error) {
	return remote.Do(ctx, s.remote, remote.Request[*model.WorkingHoursEntry]{
		Op:         "working_hours.find_open",
		AllowEmpty: true,
		Call: func(ctx context.Context) (*model.WorkingHoursEntry, error) {
			return s.hours.FindOpenByEmployee(ctx, employeeID)
		},
	})
}

// chunkEntries は長時間セッションの2番目以降の区間を締め済みの記録に変換する。
func (s *Service) chunkEntries(employeeID string, chunks []Interval) []model.WorkingHoursEntry {
	entries := make([]model.WorkingHoursEntry, 0, len(chunks))
	for _, c := range chunks {
		end := c.End
		entries = append(entries, model.WorkingHoursEntry{
			ID:         uuid.NewString(),
			EmployeeID: employeeID,
			Date:       model.CalendarDay(c.Start, s.loc),
			CheckIn:    c.Start,
			CheckOut:   &end,
			TotalHours: c.Hours(),
		})
	}
	return entries
}

// invalidate は従業員の一覧キャッシュを破棄する。
func (s *Service) invalidate(employeeID string) {
	s.remote.Invalidate(listOpPrefix + employeeID + ":")
}

// notifyAsync は通知を業務処理と切り離して送信する。失敗はログに記録する。
func (s *Service) notifyAsync(kind string, send func(ctx context.Context) error) {
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			s.metrics.RecordNotification(kind, false)
			s.logger.Warn("notification failed",
				slog.String("kind", kind),
				slog.String("error", err.Error()),
			)
			return
		}
		s.metrics.RecordNotification(kind, true)
	})
}

// clock はミリ秒精度の現在時刻を返す。
func (s *Service) clock() time.Time {
	return s.now().Round(0).Truncate(time.Millisecond)
}

func validateEmployee(employee *model.Employee) error {
	if employee == nil {
		return model.NewValidationError("従業員が指定されていません")
	}
	return validateEmployeeID(employee.ID)
}

func validateEmployeeID(id string) error {
	if id == "" {
		return model.NewValidationError("従業員IDは必須です")
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.NewValidationError(fmt.Sprintf("従業員IDが不正です: %q", id))
	}
	return nil
}
