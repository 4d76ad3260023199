package cli

import (
	"github.com/spf13/cobra"
)

var notifyMessage string

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "发送一条测试消息到已启用的推送渠道",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().NotifyTest(cmd.Context(), notifyMessage)
	},
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyMessage, "message", "", "消息内容")
}
