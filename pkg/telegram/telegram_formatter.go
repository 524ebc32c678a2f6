package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"stock-forecast/pkg/utils"
)

// Helpers for messages sent with telebot.ModeHTML.

func Bold(s string) string {
	return "<b>" + html.EscapeString(s) + "</b>"
}

func Code(s string) string {
	return "<code>" + html.EscapeString(s) + "</code>"
}

func Escape(s string) string {
	return html.EscapeString(s)
}

func FormatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func FormatDate(t time.Time, loc *time.Location) string {
	return Escape(utils.PrettyDate(t, loc))
}

// FormatList renders "1. item" lines.
func FormatList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
	return sb.String()
}
