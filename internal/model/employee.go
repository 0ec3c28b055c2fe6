package model

import "time"

// Employee は勤怠を記録する従業員を表す。
// WorkingHoursはチェックイン順（古い順）に並ぶ。
type Employee struct {
	ID           string
	Name         string
	Position     string
	WorkingHours []WorkingHoursEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LastEntry は最新の勤務記録を返す。記録がない場合はnilを返す。
func (e *Employee) LastEntry() *WorkingHoursEntry {
	if len(e.WorkingHours) == 0 {
		return nil
	}
	return &e.WorkingHours[len(e.WorkingHours)-1]
}

// RequestStatus は休暇申請・退職申請の審査状態を表す。
type RequestStatus string

const (
	// RequestStatusPending は審査待ち。
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusApproved は承認済み。
	RequestStatusApproved RequestStatus = "approved"
	// RequestStatusRejected は却下。
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid は定義済みの審査状態かどうかを返す。
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}
