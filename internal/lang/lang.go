package lang

import "fmt"

// Locale is a BCP 47 language tag as Discord reports it.
type Locale string

const (
	EnglishUS Locale = "en-US"
)

// DefaultLocale is used whenever a guild has no usable preferred locale.
// Overridable from configuration before the bot starts serving.
var DefaultLocale = EnglishUS

var enabled = map[Locale]bool{
	EnglishUS: true,
}

// Resolve maps a guild's preferred locale to an enabled locale, falling
// back to the default.
func Resolve(preferred string) Locale {
	l := Locale(preferred)
	if enabled[l] {
		return l
	}
	return DefaultLocale
}

var messages = map[Locale]map[string]string{
	EnglishUS: {
		"validation.cooldownHit":     "You can only use this command %d time(s) every %s. Please try again later.",
		"validation.missingPerms":    "I'm missing the following permissions to do that: %s",
		"error.command":              "Something went wrong. Please try again later.\n\nError code: `%s`",
		"error.startingUp":           "The bot is still starting up. Please try again later.",
		"display.welcome":            "Thank you for adding me to your server!",
		"other.na":                   "N/A",
		"title.cooldownHit":          "Slow Down",
		"title.missingPerms":         "Missing Permissions",
		"title.error":                "Command Error",
	},
}

// Get returns the message for key in the given locale, falling back to the
// default locale. Unknown keys come back as the key itself so a missing
// entry is visible instead of blank.
func Get(l Locale, key string) string {
	if m, ok := messages[l]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLocale][key]; ok {
		return s
	}
	return key
}

// Getf formats the message for key with args.
func Getf(l Locale, key string, args ...any) string {
	return fmt.Sprintf(Get(l, key), args...)
}
