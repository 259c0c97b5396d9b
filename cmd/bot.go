package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/example/readdaily/internal/bot"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := bot.New(a.cfg.TelegramToken, a.svc, a.dict)
		if err != nil {
			return err
		}

		if s := a.newScheduler(b); s != nil {
			if err := s.Start(); err != nil {
				return err
			}
			defer s.Stop()
		}

		log.Println("Bot started")
		return b.Run(ctx)
	},
}
