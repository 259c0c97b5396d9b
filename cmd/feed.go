package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var flagFeedJSON bool

var feedCmd = &cobra.Command{
	Use:   "feed <user-id>",
	Short: "Print today's articles for a user, rotating them if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		articles, err := a.svc.TodaysFeed(ctx, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagFeedJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(articles)
		}
		if len(articles) == 0 {
			fmt.Fprintln(out, "No articles found for the selected genres.")
			return nil
		}
		for i, article := range articles {
			fmt.Fprintf(out, "%d. [%s] %s by %s (%s)\n", i+1, article.ID, article.Title, article.Author, article.Genre)
		}
		return nil
	},
}

func init() {
	feedCmd.Flags().BoolVar(&flagFeedJSON, "json", false, "print the articles as JSON")
}
