// Package colors is the single canonical implementation of the color
// bracket thresholds shared by timer display, click scoring and rank
// labels. Every color-derived value in the system must route through it so
// display and scoring can never diverge.
package colors

import (
	"math"
	"time"
)

// Color is an ordinal bracket of percentage-of-time-remaining, RED (0)
// through PURPLE (5).
type Color int

const (
	Red Color = iota
	Orange
	Yellow
	Green
	Blue
	Purple
)

// bracketSize is the percentage width of one color bracket.
const bracketSize = 16.66667

// damping scales the raw seconds-to-next-bracket gap down to a "soon"
// countdown. A UX tunable, not a derived quantity.
const damping = 4.0

// referenceDuration normalizes MMR across games of different lengths.
const referenceDuration = 43200.0

var names = [...]string{"Red", "Orange", "Yellow", "Green", "Blue", "Purple"}

var emojis = [...]string{"🔴", "🟠", "🟡", "🟢", "🔵", "🟣"}

// RGB values used for rank display, darkest-to-brightest.
var rgbs = [...][3]uint8{
	{194, 65, 65},
	{219, 124, 48},
	{203, 166, 53},
	{80, 155, 105},
	{64, 105, 192},
	{106, 76, 147},
}

func (c Color) String() string { return names[c] }

// Emoji returns the display emoji for the bracket.
func (c Color) Emoji() string { return emojis[c] }

// RGB returns the display color for the bracket.
func (c Color) RGB() (r, g, b uint8) {
	v := rgbs[c]
	return v[0], v[1], v[2]
}

// Percentage returns remaining/duration as a percentage rounded to two
// decimal places, with remaining clamped to [0,duration] and duration
// floored at one second.
func Percentage(remaining, duration time.Duration) float64 {
	if duration < time.Second {
		duration = time.Second
	}
	if remaining < 0 {
		remaining = 0
	}
	if remaining > duration {
		remaining = duration
	}
	pct := remaining.Seconds() / duration.Seconds() * 100
	return math.Round(pct*100) / 100
}

// Bracket maps remaining time within a game duration to its color bracket.
// Lower bounds are inclusive: exactly 83.33% is PURPLE, 83.32% is BLUE.
func Bracket(remaining, duration time.Duration) Color {
	pct := Percentage(remaining, duration)
	switch {
	case pct >= 83.33:
		return Purple
	case pct >= 66.67:
		return Blue
	case pct >= 50.00:
		return Green
	case pct >= 33.33:
		return Yellow
	case pct >= 16.67:
		return Orange
	default:
		return Red
	}
}

// MMR scores a single click. Rare brackets earn exponentially more base
// points; within the two riskiest brackets the multiplier rewards clicking
// near the low edge, elsewhere it rewards hitting mid-bracket.
func MMR(remaining, duration time.Duration) float64 {
	pct := Percentage(remaining, duration)

	bracket := int(pct / bracketSize)
	if bracket > 5 {
		bracket = 5
	}
	position := math.Mod(pct, bracketSize) / bracketSize

	basePoints := math.Pow(2, float64(5-bracket))

	var positionMultiplier float64
	if bracket <= 1 {
		positionMultiplier = 1 - position
	} else {
		positionMultiplier = 1 - math.Abs(0.5-position)
	}

	if duration < time.Second {
		duration = time.Second
	}
	timeScale := duration.Seconds() / referenceDuration

	return basePoints * (1 + positionMultiplier) * timeScale
}

// thresholds in descending order; each entry is the inclusive lower bound
// of the corresponding bracket.
var thresholds = [...]struct {
	pct   float64
	color Color
}{
	{83.33, Purple},
	{66.67, Blue},
	{50.00, Green},
	{33.33, Yellow},
	{16.67, Orange},
	{0.00, Red},
}

// TimeToNext estimates how long until the timer crosses into the next lower
// bracket. The raw gap is damped; callers display it as a rough countdown,
// not an exact deadline. In the RED bracket there is no next color and the
// estimate is zero.
func TimeToNext(remaining, duration time.Duration) (time.Duration, Color) {
	pct := Percentage(remaining, duration)
	if duration < time.Second {
		duration = time.Second
	}

	for i, t := range thresholds {
		if pct >= t.pct {
			if i+1 >= len(thresholds) {
				break
			}
			next := thresholds[i+1]
			gap := duration.Seconds() * (pct - next.pct) / 100
			return time.Duration(math.Abs(gap) / damping * float64(time.Second)), next.color
		}
	}
	return 0, Red
}
