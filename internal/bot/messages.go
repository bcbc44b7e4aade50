package bot

import (
	"strings"

	"github.com/lithammer/dedent"
)

// telegramMessageLimit is Telegram's hard cap on message length.
const telegramMessageLimit = 4096

var (
	startText = trimDedent(`
		*MedGuide AI* 💊

		Send me a photo of a prescription and I'll identify the medicines on
		it, look up what each one is for, typical duration of use, prices and
		where to buy, then send you a report.

		Commands:
		/help — how to use the bot
		/history — your recent reports
		/disclaimer — medical disclaimer`)

	helpText = trimDedent(`
		*How to use*

		1. Take a clear, well-lit photo of the prescription
		2. Send it here as a *photo* (not as a file)
		3. Wait while I read it and look up each medicine
		4. You'll get a report with a section per medicine

		JPEG and PNG photos are supported. One analysis runs at a time per
		user; wait for the current one to finish before sending another
		photo.`)

	disclaimerText = trimDedent(`
		⚠️ *Medical Disclaimer*

		This bot is for informational purposes only and is not a substitute
		for professional medical advice, diagnosis or treatment. Always
		consult your doctor or pharmacist about medications. Prices and
		availability are indicative and may be out of date.`)

	busyText = trimDedent(`
		I'm still working on your previous photo. Please wait for that
		report before sending another one.`)

	invalidImageText = trimDedent(`
		That doesn't look like a JPEG or PNG photo. Please send the
		prescription as a regular photo.`)

	documentHintText = trimDedent(`
		Please send the prescription as a *photo*, not as a file. Tap the
		attachment icon and pick Photo.`)

	usageHintText = trimDedent(`
		Send me a photo of a prescription and I'll analyze it. Use /help for
		instructions.`)

	unknownCommandText = "Unknown command. Try /help."

	noHistoryText = "No reports yet. Send a prescription photo to get started."

	historyHeaderText = "Your recent reports:"

	downloadFailedText  = "Couldn't download the photo from Telegram: %v"
	analysisFailedText  = "Analysis failed: %v"
	unexpectedErrorText = "Something went wrong: %v"

	progressStartText  = "⏳ Analyzing your prescription..."
	progressDoneText   = "✅ Analysis complete in %.1fs"
	progressFailedText = "❌ Analysis failed"
)

func trimDedent(text string) string {
	return strings.TrimSpace(dedent.Dedent(text))
}

// splitMessage breaks text into chunks that fit Telegram's message limit,
// preferring paragraph breaks, then line breaks, over hard cuts.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(text[:limit], "\n")
		}
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
