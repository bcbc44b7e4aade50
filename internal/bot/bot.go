package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tkarvo/medguide-bot/internal/llm"
	"github.com/tkarvo/medguide-bot/internal/storage"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot routes Telegram updates: photos go through the analysis pipeline,
// everything else is commands and hints.
type Bot struct {
	tg         BotAPI
	store      storage.Store
	engine     llm.Engine
	state      *botState
	downloader *ImageDownloader
}

func NewBot(tg BotAPI, store storage.Store, engine llm.Engine) *Bot {
	return &Bot{
		tg:         tg,
		store:      store,
		engine:     engine,
		state:      newBotState(),
		downloader: NewImageDownloader(),
	}
}

// RegisterCommands publishes the command menu to Telegram.
func RegisterCommands(tg BotAPI) {
	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "What this bot does"},
		tgbotapi.BotCommand{Command: "help", Description: "How to use the bot"},
		tgbotapi.BotCommand{Command: "history", Description: "Your recent reports"},
		tgbotapi.BotCommand{Command: "disclaimer", Description: "Medical disclaimer"},
	)
	if _, err := tg.Request(commands); err != nil {
		log.Warn().Err(err).Msg("failed to register bot commands")
	}
}

// HandleUpdate is the main message router.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(ctx, msg)
	case msg.Document != nil:
		b.sendText(msg.Chat.ID, documentHintText)
	default:
		b.sendText(msg.Chat.ID, usageHintText)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	log.Info().Str("command", msg.Command()).Int64("userId", msg.From.ID).Msg("got command")

	switch msg.Command() {
	case "start":
		b.sendMarkdown(msg.Chat.ID, startText)
	case "help":
		b.sendMarkdown(msg.Chat.ID, helpText)
	case "disclaimer":
		b.sendMarkdown(msg.Chat.ID, disclaimerText)
	case "history":
		b.handleHistory(msg)
	default:
		b.sendText(msg.Chat.ID, unknownCommandText)
	}
}

func (b *Bot) handleHistory(msg *tgbotapi.Message) {
	reports, err := b.store.RecentReports(msg.From.ID, 5)
	if err != nil {
		log.Error().Err(err).Int64("userId", msg.From.ID).Msg("failed to load report history")
		b.sendText(msg.Chat.ID, fmt.Sprintf(unexpectedErrorText, err))
		return
	}
	if len(reports) == 0 {
		b.sendText(msg.Chat.ID, noHistoryText)
		return
	}

	var sb strings.Builder
	sb.WriteString(historyHeaderText)
	for _, r := range reports {
		sb.WriteString(fmt.Sprintf(
			"\n• %s — %s (%.1fs)",
			r.CreatedAt.Format("2006-01-02 15:04"),
			strings.Join(r.Medicines, ", "),
			float64(r.ElapsedMS)/1000,
		))
	}
	b.sendText(msg.Chat.ID, sb.String())
}

// handlePhoto runs a prescription photo through download, validation and
// analysis. One analysis per user at a time; the busy flag is released on
// every exit path, panics included.
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if !b.state.tryBegin(userID) {
		b.sendText(msg.Chat.ID, busyText)
		return
	}
	defer func() {
		b.state.end(userID)
		if r := recover(); r != nil {
			log.Error().Int64("userId", userID).Interface("panic", r).Msg("photo handler panicked")
			b.sendText(msg.Chat.ID, fmt.Sprintf(unexpectedErrorText, r))
		}
	}()

	start := time.Now()

	// Telegram orders PhotoSize ascending; take the largest rendition.
	photo := msg.Photo[len(msg.Photo)-1]
	data, err := b.downloader.DownloadFromTelegram(ctx, b.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		log.Error().Err(err).Int64("userId", userID).Msg("failed to download photo")
		b.sendText(msg.Chat.ID, fmt.Sprintf(downloadFailedText, err))
		return
	}

	mimeType, ok := sniffImageMIME(data)
	if !ok {
		b.sendText(msg.Chat.ID, invalidImageText)
		return
	}

	log.Info().
		Int64("userId", userID).
		Int("imageBytes", len(data)).
		Str("mimeType", mimeType).
		Msg("analyzing prescription photo")

	reporter := newProgressReporter(b.tg, msg.Chat.ID)
	reporter.Start()

	report, err := b.engine.Analyze(ctx, data, mimeType, reporter.Handle)
	if err != nil {
		log.Error().Err(err).Int64("userId", userID).Msg("prescription analysis failed")
		reporter.Fail()
		b.sendText(msg.Chat.ID, fmt.Sprintf(analysisFailedText, err))
		return
	}

	elapsed := time.Since(start)
	reporter.Finish(elapsed)

	for _, chunk := range splitMessage(report.Markdown, telegramMessageLimit) {
		b.sendMarkdown(msg.Chat.ID, chunk)
	}

	if err := b.store.SaveReport(&storage.StoredReport{
		TelegramID: userID,
		Medicines:  report.Medicines,
		Report:     report.Markdown,
		ElapsedMS:  elapsed.Milliseconds(),
	}); err != nil {
		log.Warn().Err(err).Int64("userId", userID).Msg("failed to persist report")
	}

	log.Info().
		Int64("userId", userID).
		Strs("medicines", report.Medicines).
		Dur("elapsed", elapsed).
		Float64("costUSD", report.Usage.CostUSD).
		Msg("report delivered")
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Error().Err(err).Int64("chatId", chatID).Msg("failed to send message")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.tg.Send(msg); err != nil {
		// Markdown from an LLM is not always valid Telegram markdown;
		// retry as plain text rather than losing the report.
		log.Warn().Err(err).Int64("chatId", chatID).Msg("markdown send failed, retrying as plain text")
		b.sendText(chatID, text)
	}
}
