package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notification kinds.
const (
	KindBrief = "brief"
	KindAlert = "alert"
	KindTest  = "test"
)

// Notification 封装一次推送内容。
type Notification struct {
	Kind    string    `json:"kind"`
	Subject string    `json:"subject,omitempty"`
	Body    string    `json:"body"`
	At      time.Time `json:"at"`
}

// Notifier 定义推送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 推送器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && result.Description != "" {
			return fmt.Errorf("telegram status %d: %s", resp.StatusCode, result.Description)
		}
		return fmt.Errorf("telegram status %d", resp.StatusCode)
	}
	if decodeErr == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false: %s", result.Description)
	}

	n.logger.Info().Str("kind", note.Kind).Int("length", len([]rune(note.Body))).Msg("notification sent (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	if note.Subject == "" {
		return note.Body
	}
	return note.Subject + "\n\n" + note.Body
}

// Multi 将通知分发到多个渠道，某一渠道失败不影响其他渠道。
type Multi []Notifier

// Notify delivers to every notifier and joins their errors.
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Notification) error { return nil }

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = Multi(nil)
	_ Notifier = Nop{}
)
