package notify

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// NewSafeClient はWebhook送信用のHTTPクライアントを生成する。
// safeurlによりプライベートIP、ループバック、リンクローカル宛ての接続は
// DNS解決後のアドレスで拒否される。
func NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("https").
		SetAllowedPorts(443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateWebhookURL はWebhook URLを起動時に静的検証する。
// 空文字列は「通知なし」として許可する。
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("webhook URL must use https: %s", redactWebhook(rawURL))
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in webhook URL: %s", redactWebhook(rawURL))
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
	}

	return nil
}

// Validate は全チャネルのURLを検証する。
func (w Webhooks) Validate() error {
	channels := []struct{ name, url string }{
		{"duty", w.Duty},
		{"off", w.Off},
		{"leave", w.Leave},
		{"resignation", w.Resignation},
	}
	for _, ch := range channels {
		if err := ValidateWebhookURL(ch.url); err != nil {
			return fmt.Errorf("%s webhook: %w", ch.name, err)
		}
	}
	return nil
}

// Empty は全チャネルが未設定かを返す。
func (w Webhooks) Empty() bool {
	return w.Duty == "" && w.Off == "" && w.Leave == "" && w.Resignation == ""
}
