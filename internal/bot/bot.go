package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/readdaily/internal/dictionary"
	"github.com/example/readdaily/internal/reading"
	"github.com/example/readdaily/pkg/models"
)

// userPrefix marks user ids that belong to Telegram accounts
const userPrefix = "tg:"

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// ReadingService is the part of reading.Service the bot uses
type ReadingService interface {
	TodaysFeed(ctx context.Context, userID string) ([]models.Article, error)
	Progress(ctx context.Context, userID string) (*models.UserProgress, error)
	Genres(ctx context.Context) []string
	ToggleGenre(ctx context.Context, userID, genre string) (models.GenrePreferences, error)
	MarkGenreScreenSeen(ctx context.Context, userID string) error
	OpenArticle(ctx context.Context, userID, articleID string) (models.Article, error)
	MarkCompleted(ctx context.Context, userID, articleID string) (*models.UserProgress, error)
	UnmarkCompleted(ctx context.Context, userID, articleID string) (*models.UserProgress, error)
	InProgressArticles(ctx context.Context, userID string) ([]models.Article, error)
	CompletedArticles(ctx context.Context, userID string) ([]models.Article, error)
	SavedWords(ctx context.Context, userID string) ([]models.DictionaryEntry, error)
	AddWord(ctx context.Context, userID, word, wordContext string) (models.DictionaryEntry, error)
	DeleteWord(ctx context.Context, userID, wordID string) (reading.UndoTicket, error)
	UndoDelete(ctx context.Context, userID, token string) (models.DictionaryEntry, error)
	Reset(ctx context.Context, userID string) (*models.UserProgress, error)
}

// Definer looks up word definitions
type Definer interface {
	Lookup(ctx context.Context, word string) ([]dictionary.Entry, error)
}

// sender is the subset of the Telegram API the bot calls. *tgbotapi.BotAPI implements it.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	botAPI *tgbotapi.BotAPI
	api    sender
	svc    ReadingService
	dict   Definer
	config *BotConfig
}

// New authorizes token against Telegram and creates a bot
func New(token string, svc ReadingService, dict Definer) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	b := newBot(botAPI, svc, dict)
	b.botAPI = botAPI
	return b, nil
}

func newBot(api sender, svc ReadingService, dict Definer) *Bot {
	return &Bot{
		api:    api,
		svc:    svc,
		dict:   dict,
		config: DefaultConfig(),
	}
}

// Run receives updates until ctx is cancelled. It returns once every
// in-flight update has been handled.
func (b *Bot) Run(ctx context.Context) error {
	if b.botAPI == nil {
		return fmt.Errorf("bot is not connected to Telegram")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := b.botAPI.GetUpdatesChan(updateConfig)
	return b.dispatch(ctx, updates, b.botAPI.StopReceivingUpdates)
}

// dispatch handles each update on its own goroutine until ctx is done or
// updates is closed, then waits for the handlers to finish
func (b *Bot) dispatch(ctx context.Context, updates <-chan tgbotapi.Update, stop func()) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			stop()
			log.Println("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches a single Telegram update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
	defer cancel()

	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil:
		err = b.reply(update.Message.Chat.ID, "I only understand commands. Try /help.")
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		log.Printf("Error handling update %d: %v", update.UpdateID, err)
	}
}

// Reaches reports whether userID belongs to a Telegram chat
func (b *Bot) Reaches(userID string) bool {
	_, ok := chatIDFor(userID)
	return ok
}

// SendDailyFeed implements the scheduler.Notifier interface
func (b *Bot) SendDailyFeed(ctx context.Context, userID string, articles []models.Article) error {
	chatID, ok := chatIDFor(userID)
	if !ok {
		return fmt.Errorf("user %s is not a Telegram user", userID)
	}

	var msg tgbotapi.MessageConfig
	if len(articles) == 0 {
		// Not picked yet, the Today button does the rotation
		msg = tgbotapi.NewMessage(chatID, "☀️ New articles are waiting for you today!")
		msg.ReplyMarkup = createKeyboard([][]MenuButton{
			{{Text: "📚 Today's articles", CallbackData: callbackToday}},
		})
	} else {
		msg = tgbotapi.NewMessage(chatID, "☀️ Your articles for today are ready!\n\n"+formatArticles(articles)+"\n\nOpen one with /read <number>.")
		msg.ReplyMarkup = readKeyboard(articles)
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending daily feed to %s: %v", userID, err)
		return err
	}
	log.Printf("Sent daily feed to %s (%d articles)", userID, len(articles))
	return nil
}

func (b *Bot) reply(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) error {
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editMessage(msg tgbotapi.Chattable) error {
	_, err := b.api.Request(msg)
	return err
}

// userKey maps a Telegram account to a reading user id
func userKey(telegramID int64) string {
	return userPrefix + strconv.FormatInt(telegramID, 10)
}

// chatIDFor reverses userKey. Private chats share the id of the user.
func chatIDFor(userID string) (int64, bool) {
	raw, ok := strings.CutPrefix(userID, userPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
