package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortTextUnchanged(t *testing.T) {
	chunks := splitMessage("short report", telegramMessageLimit)
	assert.Equal(t, []string{"short report"}, chunks)
}

func TestSplitMessagePrefersParagraphBreaks(t *testing.T) {
	para1 := strings.Repeat("a", 60)
	para2 := strings.Repeat("b", 60)
	text := para1 + "\n\n" + para2

	chunks := splitMessage(text, 100)

	require.Len(t, chunks, 2)
	assert.Equal(t, para1, chunks[0])
	assert.Equal(t, para2, chunks[1])
}

func TestSplitMessageFallsBackToLineBreaks(t *testing.T) {
	line1 := strings.Repeat("a", 60)
	line2 := strings.Repeat("b", 60)
	text := line1 + "\n" + line2

	chunks := splitMessage(text, 100)

	require.Len(t, chunks, 2)
	assert.Equal(t, line1, chunks[0])
	assert.Equal(t, line2, chunks[1])
}

func TestSplitMessageHardCutsUnbrokenText(t *testing.T) {
	text := strings.Repeat("x", 250)

	chunks := splitMessage(text, 100)

	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitMessageEveryChunkWithinLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("## Medicine\n\nDescription: ")
		sb.WriteString(strings.Repeat("detail ", 30))
		sb.WriteString("\n\n")
	}

	for _, chunk := range splitMessage(sb.String(), telegramMessageLimit) {
		assert.LessOrEqual(t, len(chunk), telegramMessageLimit)
		assert.NotEmpty(t, chunk)
	}
}
