package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/example/readdaily/internal/api"
	"github.com/example/readdaily/internal/bot"
	"github.com/example/readdaily/internal/scheduler"
)

var flagNoBot bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, plus the Telegram bot when a token is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var b *bot.Bot
		if a.cfg.TelegramToken != "" && !flagNoBot {
			b, err = bot.New(a.cfg.TelegramToken, a.svc, a.dict)
			if err != nil {
				return err
			}
		}

		var notifier scheduler.Notifier
		if b != nil {
			notifier = b
		}
		if s := a.newScheduler(notifier); s != nil {
			if err := s.Start(); err != nil {
				return err
			}
			defer s.Stop()
		}

		botDone := make(chan struct{})
		if b != nil {
			go func() {
				defer close(botDone)
				if err := b.Run(ctx); err != nil {
					log.Printf("Bot error: %v", err)
				}
			}()
		} else {
			close(botDone)
		}

		// Run blocks until ctx is cancelled or the listener fails
		err = api.NewServer(a.svc, a.dict).Run(ctx, a.cfg.HTTPAddr, a.cfg.AllowedOrigins)
		cancel()
		<-botDone
		if err != nil {
			return err
		}
		log.Println("Shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&flagNoBot, "no-bot", false, "do not start the Telegram bot even if a token is set")
}
