package channel

import (
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stellarlinkco/rosterbot/internal/bus"
)

const (
	prevLabel = "◀️"
	nextLabel = "▶️"
)

// navKeyboard builds the ◀️/▶️ row; ok is false when there is nothing to show.
func navKeyboard(nav bus.Nav) (tgbotapi.InlineKeyboardMarkup, bool) {
	if nav.Empty() {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	var row []tgbotapi.InlineKeyboardButton
	if nav.Prev > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(prevLabel, bus.NavToken(nav.Prev)))
	}
	if nav.Next > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(nextLabel, bus.NavToken(nav.Next)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(bus.MenuSearch),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(bus.MenuStats),
			tgbotapi.NewKeyboardButton(bus.MenuChart),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// splitMessage cuts s into chunks of at most limit runes, preferring line
// boundaries. Lines longer than limit are cut hard.
func splitMessage(s string, limit int) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	var chunks []string
	for utf8.RuneCountInString(s) > limit {
		cut := byteOffset(s, limit)
		if nl := strings.LastIndexByte(s[:cut], '\n'); nl > 0 {
			chunks = append(chunks, s[:nl])
			s = s[nl+1:]
			continue
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// byteOffset returns the byte index just past the first n runes of s.
func byteOffset(s string, n int) int {
	i := 0
	for n > 0 && i < len(s) {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		n--
	}
	return i
}
