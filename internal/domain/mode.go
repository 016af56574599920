package domain

import (
	"fmt"
	"regexp"
	"strings"
)

type Mode string

const (
	ModeMeditation Mode = "meditation"
	ModeBreathwork Mode = "breathwork"
	ModeFocus      Mode = "focus"
	ModeGratitude  Mode = "gratitude"
	ModeCalm       Mode = "calm"
)

// Modes в порядке убывания множителя XP.
var Modes = []Mode{ModeMeditation, ModeBreathwork, ModeFocus, ModeGratitude, ModeCalm}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("invalid session mode %q", s))
}

// Формат аккаунта в леджере: shard.realm.num. Диапазоны проверяет парсер SDK.
var accountIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func ValidAccountID(id string) bool {
	return accountIDPattern.MatchString(id)
}
