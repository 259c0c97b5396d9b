package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/readdaily/internal/dictionary"
	"github.com/example/readdaily/internal/reading"
	"github.com/example/readdaily/pkg/models"
)

// Constants for callback data
const (
	callbackGenrePrefix = "genre:"
	callbackGenresDone  = "genres_done"
	callbackReadPrefix  = "read:"
	callbackDonePrefix  = "done:"
	callbackUndoPrefix  = "undo:"
	callbackToday       = "today"
)

const helpText = "📖 Read Daily\n\n" +
	"/today - today's articles\n" +
	"/read <n|id> - open an article\n" +
	"/done <n|id> - mark an article as finished\n" +
	"/undone <n|id> - remove an article from the finished list\n" +
	"/reading - articles you started\n" +
	"/finished - articles you finished\n" +
	"/genres - choose your genres\n" +
	"/words - your saved words\n" +
	"/addword <word> [| context] - save a word\n" +
	"/delword <n> - delete a saved word\n" +
	"/define <word> - look up a definition\n" +
	"/reset - wipe your progress\n" +
	"/help - show this help"

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}
	userID := userKey(message.From.ID)
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	var err error
	switch message.Command() {
	case "start":
		err = b.handleStart(ctx, userID, chatID)
	case "help":
		err = b.reply(chatID, helpText)
	case "today":
		err = b.handleToday(ctx, userID, chatID)
	case "read":
		err = b.handleRead(ctx, userID, chatID, args)
	case "done":
		err = b.handleDone(ctx, userID, chatID, args)
	case "undone":
		err = b.handleUndone(ctx, userID, chatID, args)
	case "reading":
		err = b.handleReading(ctx, userID, chatID)
	case "finished":
		err = b.handleFinished(ctx, userID, chatID)
	case "genres":
		err = b.handleGenres(ctx, userID, chatID)
	case "words":
		err = b.handleWords(ctx, userID, chatID)
	case "addword":
		err = b.handleAddWord(ctx, userID, chatID, args)
	case "delword":
		err = b.handleDeleteWord(ctx, userID, chatID, args)
	case "define":
		err = b.handleDefine(ctx, chatID, args)
	case "reset":
		err = b.handleReset(ctx, userID, chatID)
	default:
		err = b.reply(chatID, "Unknown command. Use /help to see what I can do.")
	}

	if err != nil {
		log.Printf("Error handling /%s for %s: %v", message.Command(), userID, err)
		return b.reply(chatID, "❌ Something went wrong. Please try again later.")
	}
	return nil
}

func (b *Bot) handleStart(ctx context.Context, userID string, chatID int64) error {
	p, err := b.svc.Progress(ctx, userID)
	if err != nil {
		return err
	}
	if !p.Preferences.HasSeenGenreScreen {
		if err := b.reply(chatID, "👋 Welcome to Read Daily! Every day you get a few articles to read.\n\nFirst, pick the genres you like. Choose none to read everything."); err != nil {
			return err
		}
		return b.handleGenres(ctx, userID, chatID)
	}
	return b.handleToday(ctx, userID, chatID)
}

func (b *Bot) handleToday(ctx context.Context, userID string, chatID int64) error {
	articles, err := b.svc.TodaysFeed(ctx, userID)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return b.reply(chatID, "No articles found for your selected genres. Try /genres.")
	}
	msg := tgbotapi.NewMessage(chatID, "📚 Today's articles\n\n"+formatArticles(articles))
	msg.ReplyMarkup = readKeyboard(articles)
	return b.sendMessage(msg)
}

func (b *Bot) handleRead(ctx context.Context, userID string, chatID int64, arg string) error {
	articleID, err := b.resolveArticle(ctx, userID, arg, b.svc.TodaysFeed)
	if err != nil {
		return b.replyArticleError(chatID, arg, err)
	}
	return b.openArticle(ctx, userID, chatID, articleID)
}

// openArticle takes an article id as is, never a list position
func (b *Bot) openArticle(ctx context.Context, userID string, chatID int64, articleID string) error {
	article, err := b.svc.OpenArticle(ctx, userID, articleID)
	if err != nil {
		return b.replyArticleError(chatID, articleID, err)
	}
	msg := tgbotapi.NewMessage(chatID, formatArticle(article, b.config.ContentLimit))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "✅ Finished", CallbackData: callbackDonePrefix + article.ID}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleDone(ctx context.Context, userID string, chatID int64, arg string) error {
	articleID, err := b.resolveArticle(ctx, userID, arg, b.svc.TodaysFeed)
	if err != nil {
		return b.replyArticleError(chatID, arg, err)
	}
	return b.markDone(ctx, userID, chatID, articleID)
}

func (b *Bot) markDone(ctx context.Context, userID string, chatID int64, articleID string) error {
	if _, err := b.svc.MarkCompleted(ctx, userID, articleID); err != nil {
		return b.replyArticleError(chatID, articleID, err)
	}
	return b.reply(chatID, "🎉 Marked as finished. See them all with /finished.")
}

func (b *Bot) handleUndone(ctx context.Context, userID string, chatID int64, arg string) error {
	articleID, err := b.resolveArticle(ctx, userID, arg, b.svc.CompletedArticles)
	if err != nil {
		return b.replyArticleError(chatID, arg, err)
	}
	if _, err := b.svc.UnmarkCompleted(ctx, userID, articleID); err != nil {
		return b.replyArticleError(chatID, arg, err)
	}
	return b.reply(chatID, "Removed from your finished articles.")
}

func (b *Bot) handleReading(ctx context.Context, userID string, chatID int64) error {
	articles, err := b.svc.InProgressArticles(ctx, userID)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return b.reply(chatID, "You have no articles in progress.")
	}
	return b.reply(chatID, "📖 In progress\n\n"+formatArticles(articles))
}

func (b *Bot) handleFinished(ctx context.Context, userID string, chatID int64) error {
	articles, err := b.svc.CompletedArticles(ctx, userID)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return b.reply(chatID, "You haven't finished any articles yet.")
	}
	return b.reply(chatID, "✅ Finished\n\n"+formatArticles(articles))
}

func (b *Bot) handleGenres(ctx context.Context, userID string, chatID int64) error {
	p, err := b.svc.Progress(ctx, userID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, "Choose your genres, then press Done.")
	msg.ReplyMarkup = b.genreKeyboard(ctx, p.Preferences)
	return b.sendMessage(msg)
}

func (b *Bot) genreKeyboard(ctx context.Context, prefs models.GenrePreferences) tgbotapi.InlineKeyboardMarkup {
	var rows [][]MenuButton
	var row []MenuButton
	for _, genre := range b.svc.Genres(ctx) {
		text := genre
		if prefs.Matches(genre) && len(prefs.Genres) > 0 {
			text = "✅ " + genre
		}
		row = append(row, MenuButton{Text: text, CallbackData: callbackGenrePrefix + genre})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []MenuButton{{Text: "Done", CallbackData: callbackGenresDone}})
	return createKeyboard(rows)
}

func (b *Bot) handleWords(ctx context.Context, userID string, chatID int64) error {
	words, err := b.svc.SavedWords(ctx, userID)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return b.reply(chatID, "No saved words yet. Add one with /addword <word> | <context>.")
	}
	var sb strings.Builder
	sb.WriteString("📝 Saved words\n")
	for i, w := range words {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, w.Word)
		if w.Context != nil {
			fmt.Fprintf(&sb, " (%s)", *w.Context)
		}
	}
	return b.reply(chatID, sb.String())
}

func (b *Bot) handleAddWord(ctx context.Context, userID string, chatID int64, args string) error {
	word, wordContext, _ := strings.Cut(args, "|")
	entry, err := b.svc.AddWord(ctx, userID, word, wordContext)
	switch {
	case errors.Is(err, models.ErrInvalidWord):
		return b.reply(chatID, "Usage: /addword <word> [| context]")
	case errors.Is(err, models.ErrDuplicateWord):
		return b.reply(chatID, fmt.Sprintf("%q is already in your words.", strings.TrimSpace(word)))
	case err != nil:
		return err
	}
	return b.reply(chatID, fmt.Sprintf("Saved %q.", entry.Word))
}

func (b *Bot) handleDeleteWord(ctx context.Context, userID string, chatID int64, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return b.reply(chatID, "Usage: /delword <number from /words>")
	}
	words, err := b.svc.SavedWords(ctx, userID)
	if err != nil {
		return err
	}
	if n < 1 || n > len(words) {
		return b.reply(chatID, fmt.Sprintf("There is no word number %d.", n))
	}
	ticket, err := b.svc.DeleteWord(ctx, userID, words[n-1].ID)
	if errors.Is(err, reading.ErrUnknownWord) {
		return b.reply(chatID, "That word was already deleted.")
	}
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Deleted %q.", ticket.Word.Word))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "↩️ Undo", CallbackData: callbackUndoPrefix + ticket.Token}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleDefine(ctx context.Context, chatID int64, word string) error {
	if word == "" {
		return b.reply(chatID, "Usage: /define <word>")
	}
	if b.dict == nil {
		return b.reply(chatID, "The dictionary is not available right now.")
	}
	entries, err := b.dict.Lookup(ctx, word)
	if errors.Is(err, dictionary.ErrWordNotFound) {
		return b.reply(chatID, fmt.Sprintf("No definitions found for %q.", word))
	}
	if err != nil {
		return err
	}
	return b.reply(chatID, dictionary.Summary(entries, b.config.DefinitionCount))
}

func (b *Bot) handleReset(ctx context.Context, userID string, chatID int64) error {
	if _, err := b.svc.Reset(ctx, userID); err != nil {
		return err
	}
	return b.reply(chatID, "Your progress was wiped. Send /start to begin again.")
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.From == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always answer the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("Warning: Failed to answer callback: %v", err)
	}

	userID := userKey(callback.From.ID)
	chatID := callback.Message.Chat.ID
	data := callback.Data

	var err error
	switch {
	case data == callbackToday:
		err = b.handleToday(ctx, userID, chatID)
	case data == callbackGenresDone:
		err = b.handleGenresDone(ctx, userID, chatID)
	case strings.HasPrefix(data, callbackGenrePrefix):
		err = b.handleGenreToggle(ctx, userID, callback, strings.TrimPrefix(data, callbackGenrePrefix))
	case strings.HasPrefix(data, callbackReadPrefix):
		err = b.openArticle(ctx, userID, chatID, strings.TrimPrefix(data, callbackReadPrefix))
	case strings.HasPrefix(data, callbackDonePrefix):
		err = b.markDone(ctx, userID, chatID, strings.TrimPrefix(data, callbackDonePrefix))
	case strings.HasPrefix(data, callbackUndoPrefix):
		err = b.handleUndo(ctx, userID, chatID, strings.TrimPrefix(data, callbackUndoPrefix))
	default:
		return b.reply(chatID, "⚠️ Unknown action")
	}

	if err != nil {
		log.Printf("Error handling callback %q for %s: %v", data, userID, err)
		return b.reply(chatID, "❌ Something went wrong. Please try again later.")
	}
	return nil
}

func (b *Bot) handleGenreToggle(ctx context.Context, userID string, callback *tgbotapi.CallbackQuery, genre string) error {
	prefs, err := b.svc.ToggleGenre(ctx, userID, genre)
	if err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(
		callback.Message.Chat.ID,
		callback.Message.MessageID,
		b.genreKeyboard(ctx, prefs),
	)
	return b.editMessage(edit)
}

func (b *Bot) handleGenresDone(ctx context.Context, userID string, chatID int64) error {
	if err := b.svc.MarkGenreScreenSeen(ctx, userID); err != nil {
		return err
	}
	p, err := b.svc.Progress(ctx, userID)
	if err != nil {
		return err
	}
	text := "Saved! You will read from every genre."
	if len(p.Preferences.Genres) > 0 {
		text = "Saved! Your genres: " + strings.Join(p.Preferences.Genres, ", ") + "."
	}
	msg := tgbotapi.NewMessage(chatID, text+" New genres apply from your next daily set.")
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "📚 Today's articles", CallbackData: callbackToday}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleUndo(ctx context.Context, userID string, chatID int64, token string) error {
	entry, err := b.svc.UndoDelete(ctx, userID, token)
	switch {
	case errors.Is(err, reading.ErrUndoExpired):
		return b.reply(chatID, "Too late to undo, the word is gone.")
	case errors.Is(err, models.ErrDuplicateWord):
		return b.reply(chatID, "That word is already back in your list.")
	case err != nil:
		return err
	}
	return b.reply(chatID, fmt.Sprintf("Restored %q.", entry.Word))
}

// resolveArticle turns a 1-based position in list, or a raw article id, into an id
func (b *Bot) resolveArticle(ctx context.Context, userID, arg string, list func(context.Context, string) ([]models.Article, error)) (string, error) {
	if arg == "" {
		return "", errMissingArgument
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	articles, err := list(ctx, userID)
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(articles) {
		return "", fmt.Errorf("%w: no article number %d", reading.ErrUnknownArticle, n)
	}
	return articles[n-1].ID, nil
}

var errMissingArgument = errors.New("missing argument")

func (b *Bot) replyArticleError(chatID int64, arg string, err error) error {
	switch {
	case errors.Is(err, errMissingArgument):
		return b.reply(chatID, "Tell me which article: a number from the list or an article id.")
	case errors.Is(err, reading.ErrUnknownArticle):
		return b.reply(chatID, fmt.Sprintf("I can't find article %q.", arg))
	default:
		return err
	}
}

func formatArticles(articles []models.Article) string {
	var sb strings.Builder
	for i, a := range articles {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, a.Title)
		if a.Author != "" {
			fmt.Fprintf(&sb, " by %s", a.Author)
		}
		if a.Genre != "" {
			fmt.Fprintf(&sb, " [%s]", a.Genre)
		}
	}
	return sb.String()
}

func formatArticle(a models.Article, limit int) string {
	var sb strings.Builder
	sb.WriteString(a.Title)
	if a.Subtitle != "" {
		sb.WriteString("\n" + a.Subtitle)
	}
	if a.Author != "" {
		sb.WriteString("\nby " + a.Author)
	}
	sb.WriteString("\n\n")

	content := []rune(a.Content)
	if limit > 0 && len(content) > limit {
		sb.WriteString(string(content[:limit]) + "…")
	} else {
		sb.WriteString(a.Content)
	}
	return sb.String()
}

func readKeyboard(articles []models.Article) tgbotapi.InlineKeyboardMarkup {
	var row []MenuButton
	for i, a := range articles {
		row = append(row, MenuButton{Text: fmt.Sprintf("Read %d", i+1), CallbackData: callbackReadPrefix + a.ID})
	}
	return createKeyboard([][]MenuButton{row})
}
