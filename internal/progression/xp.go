// Package progression содержит чистые функции прогресса: XP, уровни и сетку сада.
// Одни и те же функции используются и при записи, и при отображении.
package progression

import (
	"math"

	"zengarden/internal/domain"
)

const (
	BaseXPPerMinute = 10
	XPLevelDivisor  = 100
)

type Multipliers map[domain.Mode]float64

func DefaultMultipliers() Multipliers {
	return Multipliers{
		domain.ModeMeditation: 1.5,
		domain.ModeBreathwork: 1.3,
		domain.ModeFocus:      1.2,
		domain.ModeGratitude:  1.1,
		domain.ModeCalm:       1.0,
	}
}

type Engine struct {
	multipliers Multipliers
}

func NewEngine(m Multipliers) *Engine {
	merged := DefaultMultipliers()
	for mode, v := range m {
		if v > 0 {
			merged[mode] = v
		}
	}
	return &Engine{multipliers: merged}
}

func (e *Engine) Multiplier(mode domain.Mode) float64 {
	if m, ok := e.multipliers[mode]; ok {
		return m
	}
	return 1.0
}

// XP = floor(duration * 10 * multiplier(mode))
func (e *Engine) XP(durationMinutes int, mode domain.Mode) int {
	if durationMinutes <= 0 {
		return 0
	}
	return int(math.Floor(float64(durationMinutes) * BaseXPPerMinute * e.Multiplier(mode)))
}

// Level = floor(sqrt(totalXP / 100)) + 1
func Level(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return int(math.Floor(math.Sqrt(float64(totalXP)/XPLevelDivisor))) + 1
}

func XPForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return (level - 1) * (level - 1) * XPLevelDivisor
}

type Progress struct {
	InLevel int `json:"currentLevelXP"`
	Span    int `json:"nextLevelXP"`
	Percent int `json:"progressPercent"`
}

func LevelProgress(totalXP, level int) Progress {
	base := XPForLevel(level)
	span := XPForLevel(level+1) - base
	in := totalXP - base

	// floor(in/span*100) в целых числах, без дрейфа float
	percent := 0
	if span > 0 && in > 0 {
		percent = in * 100 / span
	}
	if percent > 100 {
		percent = 100
	}
	return Progress{InLevel: in, Span: span, Percent: percent}
}
