package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"github.com/hitoshi/hrportal/internal/model"
	"github.com/hitoshi/hrportal/internal/ratelimit"
)

// maxErrorBodySize はエラー応答から読み取る本文の上限バイト数。
const maxErrorBodySize = 4096

// Webhooks はチャネルごとのWebhook URL。空のチャネルは送信をスキップする。
type Webhooks struct {
	Duty        string
	Off         string
	Leave       string
	Resignation string
}

// Discord はDiscord Webhookに埋め込みメッセージを送信するNotifier。
type Discord struct {
	httpClient *http.Client
	logger     *slog.Logger
	webhooks   Webhooks
	limiter    *ratelimit.Limiter
	pacer      *rate.Limiter
	policy     *bluemonday.Policy
	loc        *time.Location
	now        func() time.Time
}

// DiscordOption はDiscordの生成オプション。
type DiscordOption func(*Discord)

// WithLimiter は送信前に判定するスライディングウィンドウ制限を設定する。
// 制限を超えた送信はmodel.KindRateLimitedのエラーになる。
func WithLimiter(l *ratelimit.Limiter) DiscordOption {
	return func(d *Discord) {
		d.limiter = l
	}
}

// WithPacer は送信間隔を平準化するトークンバケットを設定する。
func WithPacer(p *rate.Limiter) DiscordOption {
	return func(d *Discord) {
		d.pacer = p
	}
}

// WithLocation は日時表示に使うタイムゾーンを設定する。
func WithLocation(loc *time.Location) DiscordOption {
	return func(d *Discord) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) DiscordOption {
	return func(d *Discord) {
		d.now = now
	}
}

// NewDiscord はDiscordの新しいインスタンスを生成する。
// Discordのチャネル単位の制限（5リクエスト/2秒）に合わせ、デフォルトの送信間隔は0.4秒とする。
func NewDiscord(httpClient *http.Client, webhooks Webhooks, logger *slog.Logger, opts ...DiscordOption) *Discord {
	d := &Discord{
		httpClient: httpClient,
		logger:     logger,
		webhooks:   webhooks,
		pacer:      rate.NewLimiter(rate.Every(400*time.Millisecond), 5),
		policy:     bluemonday.StrictPolicy(),
		loc:        time.UTC,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CheckIn は勤務開始を通知する。
func (d *Discord) CheckIn(ctx context.Context, event DutyEvent) error {
	event.Name = d.plain(event.Name)
	event.Position = d.plain(event.Position)
	event.At = event.At.In(d.loc)
	return d.send(ctx, "duty", d.webhooks.Duty, checkInEmbed(event, d.now()))
}

// CheckOut は勤務終了を通知する。
func (d *Discord) CheckOut(ctx context.Context, event DutyEvent) error {
	event.Name = d.plain(event.Name)
	event.Position = d.plain(event.Position)
	event.At = event.At.In(d.loc)
	return d.send(ctx, "off", d.webhooks.Off, checkOutEmbed(event, d.now()))
}

// LeaveRequest は休暇申請の状態を通知する。
func (d *Discord) LeaveRequest(ctx context.Context, event LeaveEvent) error {
	if !event.Status.Valid() {
		return model.NewValidationError(fmt.Sprintf("不明な申請状態です: %q", event.Status))
	}
	event.Name = d.plain(event.Name)
	event.Position = d.plain(event.Position)
	event.Reason = d.plain(event.Reason)
	if event.StartDate != nil {
		s := event.StartDate.In(d.loc)
		event.StartDate = &s
	}
	if event.EndDate != nil {
		e := event.EndDate.In(d.loc)
		event.EndDate = &e
	}
	return d.send(ctx, "leave", d.webhooks.Leave, leaveEmbed(event, d.now()))
}

// Resignation は退職申請の状態を通知する。
func (d *Discord) Resignation(ctx context.Context, event ResignationEvent) error {
	if !event.Status.Valid() {
		return model.NewValidationError(fmt.Sprintf("不明な申請状態です: %q", event.Status))
	}
	event.Name = d.plain(event.Name)
	event.Position = d.plain(event.Position)
	event.Passport = d.plain(event.Passport)
	event.ReasonIC = d.plain(event.ReasonIC)
	event.ReasonOOC = d.plain(event.ReasonOOC)
	event.RequestDate = event.RequestDate.In(d.loc)
	return d.send(ctx, "resignation", d.webhooks.Resignation, resignationEmbed(event, d.now().In(d.loc)))
}

// plain は入力からマークアップを取り除いたプレーンテキストを返す。
func (d *Discord) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(d.policy.Sanitize(s)))
}

// send は埋め込みを1件Webhookに送信する。
// URLが未設定の場合は警告を記録して何もしない。2xx以外の応答はエラーとする。
func (d *Discord) send(ctx context.Context, channel, webhookURL string, e embed) error {
	if webhookURL == "" {
		d.logger.Warn("Discord通知をスキップしました: Webhook URLが未設定です",
			slog.String("channel", channel),
		)
		return nil
	}

	if d.limiter != nil && !d.limiter.Allow(channel) {
		return model.NewRateLimitedError("notify:" + channel)
	}
	if d.pacer != nil {
		if err := d.pacer.Wait(ctx); err != nil {
			return fmt.Errorf("通知送信の待機が中断されました: %w", err)
		}
	}

	body, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		return fmt.Errorf("通知ペイロードの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "HRPortal/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error("Discord Webhookの呼び出しに失敗しました",
			slog.String("channel", channel),
			slog.String("webhook", redactWebhook(webhookURL)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("Discord Webhookの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		d.logger.Error("Discord Webhookがエラーステータスを返しました",
			slog.String("channel", channel),
			slog.String("webhook", redactWebhook(webhookURL)),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("Discord APIエラー (%d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// redactWebhook はWebhook URLの末尾（トークン部分）を伏せ字にする。
func redactWebhook(webhookURL string) string {
	i := strings.LastIndex(webhookURL, "/")
	if i < 0 {
		return "[REDACTED]"
	}
	return webhookURL[:i] + "/[REDACTED]"
}

var _ Notifier = (*Discord)(nil)
