package service

import (
	"fmt"

	"github.com/user/moviebot/internal/messenger"
	"github.com/user/moviebot/internal/model"
)

// User-facing texts.
const (
	TextMaintenance  = "🛠 The bot is under maintenance. Please try again later."
	TextForceJoin    = "⚠️ To use this bot, please join the channels below first.\n\nWhen you are done, press \"✅ Done\" and send your movie name again."
	TextSearching    = "🔍 Searching..."
	TextNotFound     = "❌ Nothing found for \"%s\".\n\nCheck the spelling or send the movie code."
	TextRefine       = "ℹ️ Showing %d of %d matches. Refine your query to narrow it down."
	TextQueued       = "⏳ Many people are searching right now.\n\n• Your position: %d\n• Active searches: %d/%d\n\nYour result will arrive shortly."
	TextSearchFailed = "❌ Could not send the movie. Please try again."
	TextUnauthorized = "⛔ This command is for the bot owner only."
	TextJoinedOK     = "✅ Membership confirmed. Send a movie name or code to search."
	TextStillMissing = "❌ You have not joined every channel yet."

	ForceDoneData = "force_done"
)

// CooldownText tells the user how long to wait.
func CooldownText(seconds int) string {
	return fmt.Sprintf("⏳ Please wait %d seconds before searching again.", seconds)
}

// orDefault returns overlay, or fallback text when the owner never set one.
func orDefault(overlay model.Media, fallback string) model.Media {
	if overlay.IsZero() {
		return model.TextMedia(fallback)
	}
	return overlay
}

// ForceJoinKeyboard lists join buttons for the missing channels and a recheck button.
func ForceJoinKeyboard(missing []model.ForceChannel) messenger.Keyboard {
	kb := make(messenger.Keyboard, 0, len(missing)+1)
	for _, ch := range missing {
		if ch.JoinLink == "" {
			continue
		}
		title := ch.Title
		if title == "" {
			title = "Join channel"
		}
		kb = append(kb, []messenger.Button{{Text: "➕ " + title, URL: ch.JoinLink}})
	}
	return append(kb, []messenger.Button{{Text: "✅ Done", Data: ForceDoneData}})
}

// DenialMessage builds the reply for a policy denial.
func DenialMessage(d *model.Denial, st model.Settings) (model.Media, messenger.SendOptions) {
	switch d.Reason {
	case model.DenyMaintenance:
		return model.TextMedia(TextMaintenance), messenger.SendOptions{}
	case model.DenyForceJoin:
		return orDefault(st.ForceJoin, TextForceJoin), messenger.SendOptions{Keyboard: ForceJoinKeyboard(d.Missing)}
	default:
		return model.TextMedia(CooldownText(d.RemainingSeconds())), messenger.SendOptions{}
	}
}
