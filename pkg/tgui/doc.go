// Package tgui renders chat message text for Telegram ParseMode="HTML".
// Values of type H are already escaped; build them with Esc and the tag
// helpers rather than by concatenating user input.
package tgui

// ParseModeHTML is the SendOptions.ParseMode value for H text.
const ParseModeHTML = "HTML"

// MaxMessageRunes is Telegram's message length limit.
const MaxMessageRunes = 4096
