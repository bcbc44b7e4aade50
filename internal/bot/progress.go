package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tkarvo/medguide-bot/internal/llm"
)

const (
	// progressMaxLines caps how many recent events the status message shows.
	progressMaxLines = 6
	// progressEditInterval throttles message edits so Telegram's rate
	// limits are not hit during busy tool rounds.
	progressEditInterval = 1500 * time.Millisecond
)

// progressReporter mirrors analysis progress into a single Telegram message
// that gets edited in place as tagged events arrive.
type progressReporter struct {
	tg        BotAPI
	chatID    int64
	messageID int
	lines     []string
	lastEdit  time.Time
}

func newProgressReporter(tg BotAPI, chatID int64) *progressReporter {
	return &progressReporter{tg: tg, chatID: chatID}
}

// Start posts the initial status message. If it fails the reporter degrades
// to a no-op and the analysis continues without live progress.
func (p *progressReporter) Start() {
	sent, err := p.tg.Send(tgbotapi.NewMessage(p.chatID, progressStartText))
	if err != nil {
		log.Warn().Err(err).Int64("chatId", p.chatID).Msg("failed to post progress message")
		return
	}
	p.messageID = sent.MessageID
}

// Handle records a progress event and refreshes the status message.
func (p *progressReporter) Handle(event llm.ProgressEvent) {
	p.lines = append(p.lines, formatProgressLine(event))
	if len(p.lines) > progressMaxLines {
		p.lines = p.lines[len(p.lines)-progressMaxLines:]
	}

	// Stage transitions always render; the rest is throttled.
	if event.Kind != llm.EventStage && time.Since(p.lastEdit) < progressEditInterval {
		return
	}
	p.edit(strings.Join(p.lines, "\n"))
}

// Finish replaces the status message with a completion note.
func (p *progressReporter) Finish(elapsed time.Duration) {
	p.edit(fmt.Sprintf(progressDoneText, elapsed.Seconds()))
}

// Fail replaces the status message with a failure note.
func (p *progressReporter) Fail() {
	p.edit(progressFailedText)
}

func (p *progressReporter) edit(text string) {
	if p.messageID == 0 {
		return
	}
	edit := tgbotapi.NewEditMessageText(p.chatID, p.messageID, text)
	if _, err := p.tg.Request(edit); err != nil {
		log.Warn().Err(err).Int64("chatId", p.chatID).Msg("failed to edit progress message")
		return
	}
	p.lastEdit = time.Now()
}

func formatProgressLine(event llm.ProgressEvent) string {
	switch event.Kind {
	case llm.EventStage:
		return "⏳ " + event.Text
	case llm.EventModel:
		return "💬 " + event.Text
	case llm.EventToolCall:
		return "🔍 " + event.Text
	case llm.EventToolResult:
		return "✅ " + event.Text
	default:
		return event.Text
	}
}
