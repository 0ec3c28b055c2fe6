// Package notify は勤務・申請イベントの外部通知を提供する。
// 通知は業務処理の成否に影響しない。送信失敗は呼び出し側でログに記録する。
package notify

import (
	"context"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
)

// Notifier はイベント通知のインターフェース。
type Notifier interface {
	// CheckIn は勤務開始を通知する。
	CheckIn(ctx context.Context, event DutyEvent) error
	// CheckOut は勤務終了を通知する。TotalHoursを含む。
	CheckOut(ctx context.Context, event DutyEvent) error
	// LeaveRequest は休暇申請の状態を通知する。
	LeaveRequest(ctx context.Context, event LeaveEvent) error
	// Resignation は退職申請の状態を通知する。
	Resignation(ctx context.Context, event ResignationEvent) error
}

// DutyEvent は出勤・退勤イベント。
type DutyEvent struct {
	Name       string
	Position   string
	At         time.Time
	TotalHours float64
}

// LeaveEvent は休暇申請イベント。StartDateとEndDateは任意。
type LeaveEvent struct {
	Name      string
	Position  string
	Reason    string
	Status    model.RequestStatus
	StartDate *time.Time
	EndDate   *time.Time
}

// ResignationEvent は退職申請イベント。
type ResignationEvent struct {
	Name        string
	Position    string
	Passport    string
	ReasonIC    string
	ReasonOOC   string
	Status      model.RequestStatus
	RequestDate time.Time
}

// Nop は何も送信しないNotifier。
type Nop struct{}

func (Nop) CheckIn(context.Context, DutyEvent) error            { return nil }
func (Nop) CheckOut(context.Context, DutyEvent) error           { return nil }
func (Nop) LeaveRequest(context.Context, LeaveEvent) error      { return nil }
func (Nop) Resignation(context.Context, ResignationEvent) error { return nil }

var _ Notifier = Nop{}
