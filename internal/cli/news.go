package cli

import (
	"github.com/spf13/cobra"

	"finance-brief/internal/app"
)

var (
	newsCategory string
	newsLimit    int
	newsVerbose  bool
	newsKeywords []string

	calendarDays      int
	calendarCountry   string
	calendarRecurring bool
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show ranked financial headlines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().News(cmd.Context(), app.NewsOptions{
			Category: newsCategory,
			Limit:    newsLimit,
			Verbose:  newsVerbose,
			Keywords: newsKeywords,
		})
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show upcoming economic events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Calendar(cmd.Context(), app.CalendarOptions{
			Days:      calendarDays,
			Country:   calendarCountry,
			Recurring: calendarRecurring,
		})
	},
}

func init() {
	newsCmd.Flags().StringVar(&newsCategory, "category", "", "Only feeds in this category")
	newsCmd.Flags().IntVar(&newsLimit, "limit", 10, "Number of headlines")
	newsCmd.Flags().BoolVarP(&newsVerbose, "verbose", "v", false, "Include summaries and links")
	newsCmd.Flags().StringSliceVar(&newsKeywords, "keywords", nil, "Only headlines matching these keywords")

	calendarCmd.Flags().IntVar(&calendarDays, "days", 7, "Days ahead to include")
	calendarCmd.Flags().StringVar(&calendarCountry, "country", "", "Country code filter, e.g. AU")
	calendarCmd.Flags().BoolVar(&calendarRecurring, "recurring", false, "List recurring releases instead")
}
