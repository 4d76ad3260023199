package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-brief/internal/alerting"
)

// NotifyTest 向所有已启用的推送渠道发送一条测试消息。
func (a *App) NotifyTest(ctx context.Context, message string) error {
	notifier, closeNotifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	defer closeNotifier()
	if notifier == nil {
		return errors.New("no delivery channel enabled")
	}

	if message == "" {
		message = fmt.Sprintf("%s delivery test", a.Config.App.Name)
	}
	note := alerting.Notification{
		Kind:    alerting.KindTest,
		Subject: "Test notification",
		Body:    message,
		At:      time.Now().UTC(),
	}
	if err := notifier.Notify(ctx, note); err != nil {
		return fmt.Errorf("send test notification: %w", err)
	}
	a.println("Test notification sent.")
	return nil
}
