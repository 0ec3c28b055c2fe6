package notify

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/hrportal/internal/model"
)

// 埋め込みの色
const (
	colorGreen  = 0x00FF00
	colorRed    = 0xFF0000
	colorOrange = 0xFFA500
)

// maxFieldValueLength はDiscordの埋め込みフィールド値の上限文字数。
const maxFieldValueLength = 1024

// blankField は埋め込み内の区切り用の空フィールド値（ゼロ幅スペース）。
const blankField = "​"

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title     string       `json:"title"`
	Color     int          `json:"color"`
	Fields    []embedField `json:"fields"`
	Timestamp string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var indonesianWeekdays = [...]string{
	"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu",
}

// formatDayMonthYear は "Senin, 15 Januari 2024" 形式の日付を返す。
func formatDayMonthYear(t time.Time) string {
	return fmt.Sprintf("%s, %d %s %d",
		indonesianWeekdays[t.Weekday()], t.Day(), indonesianMonths[t.Month()-1], t.Year())
}

func formatClock(t time.Time) string {
	return t.Format("15:04:05")
}

// formatDuration は時間数を "8 jam 30 menit" 形式に変換する。
func formatDuration(hours float64) string {
	totalMinutes := int(math.Round(hours * 60))
	h, m := totalMinutes/60, totalMinutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d menit", m)
	case m == 0:
		return fmt.Sprintf("%d jam", h)
	default:
		return fmt.Sprintf("%d jam %d menit", h, m)
	}
}

func statusEmoji(s model.RequestStatus) string {
	switch s {
	case model.RequestStatusApproved:
		return "✅"
	case model.RequestStatusRejected:
		return "❌"
	default:
		return "⏳"
	}
}

func statusColor(s model.RequestStatus) int {
	switch s {
	case model.RequestStatusApproved:
		return colorGreen
	case model.RequestStatusRejected:
		return colorRed
	default:
		return colorOrange
	}
}

func field(name, value string) embedField {
	return embedField{Name: name, Value: truncate(value, maxFieldValueLength)}
}

func separator() embedField {
	return embedField{Name: blankField, Value: blankField}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func checkInEmbed(e DutyEvent, now time.Time) embed {
	return embed{
		Title: "🟢 Mulai On Duty",
		Color: colorGreen,
		Fields: []embedField{
			field("Nama", e.Name),
			field("Jabatan", orDefault(e.Position, "-")),
			separator(),
			field("Tanggal", formatDayMonthYear(e.At)),
			field("Waktu", formatClock(e.At)),
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

func checkOutEmbed(e DutyEvent, now time.Time) embed {
	return embed{
		Title: "🔴 Off Duty",
		Color: colorRed,
		Fields: []embedField{
			field("Nama", e.Name),
			field("Jabatan", orDefault(e.Position, "-")),
			separator(),
			field("Tanggal", formatDayMonthYear(e.At)),
			field("Waktu", formatClock(e.At)),
			field("Total Durasi", formatDuration(e.TotalHours)),
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

func leaveEmbed(e LeaveEvent, now time.Time) embed {
	dates := "Not specified"
	if e.StartDate != nil && e.EndDate != nil {
		dates = formatDayMonthYear(*e.StartDate) + " - " + formatDayMonthYear(*e.EndDate)
	}
	return embed{
		Title: "📋 Pengajuan Cuti " + statusEmoji(e.Status),
		Color: statusColor(e.Status),
		Fields: []embedField{
			field("Nama", e.Name),
			field("Jabatan", orDefault(e.Position, "-")),
			separator(),
			field("Tanggal", dates),
			field("Status", strings.ToUpper(string(e.Status))),
			separator(),
			field("Alasan", orDefault(e.Reason, "Not provided")),
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

func resignationEmbed(e ResignationEvent, now time.Time) embed {
	return embed{
		Title: "📄 Pengajuan Pengunduran Diri " + statusEmoji(e.Status),
		Color: statusColor(e.Status),
		Fields: []embedField{
			field("Nama", e.Name),
			field("Jabatan", orDefault(e.Position, "-")),
			separator(),
			field("Passport", orDefault(e.Passport, "-")),
			field("Status", strings.ToUpper(string(e.Status))),
			separator(),
			field("Tanggal Pengajuan", formatDayMonthYear(e.RequestDate)),
			field("Tanggal Permintaan", now.Format("02/01/2006 15:04:05")),
			separator(),
			field("Alasan (In Character)", orDefault(e.ReasonIC, "Tidak di isi")),
			field("Alasan (Out of Character)", orDefault(e.ReasonOOC, "Tidak di isi")),
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
