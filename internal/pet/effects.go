package pet

import (
	"time"
)

// InteractionType identifies one kind of pet interaction.
type InteractionType string

const (
	Feed     InteractionType = "feed"
	Clean    InteractionType = "clean"
	Sleep    InteractionType = "sleep"
	Wake     InteractionType = "wake"
	Play     InteractionType = "play"
	Pet      InteractionType = "pet"
	Exercise InteractionType = "exercise"
	Treat    InteractionType = "treat"
	Medicine InteractionType = "medicine"
)

// ParseInteractionType validates an inbound interaction name.
func ParseInteractionType(s string) (InteractionType, bool) {
	t := InteractionType(s)
	_, ok := effects[t]
	return t, ok
}

// Conditions are the preconditions an interaction requires. Threshold
// pointers are nil when the condition does not apply.
type Conditions struct {
	NotSleeping     bool
	IsSleeping      bool
	IsSick          bool
	MaxHunger       *float64
	MinEnergy       *float64
	MaxEnergy       *float64
	MaxTreatsPerDay int
}

// Effect defines the stat deltas, cooldown and preconditions of one
// interaction type.
type Effect struct {
	Happiness  float64
	Hunger     float64
	Energy     float64
	Hygiene    float64
	Cooldown   time.Duration
	Conditions Conditions
}

func threshold(v float64) *float64 { return &v }

// effects is the static interaction table. Deltas and cooldowns are game
// balance constants; changing one changes the game, not the engine.
var effects = map[InteractionType]Effect{
	Feed: {
		Happiness: 5, Hunger: 30, Energy: 0, Hygiene: -5,
		Cooldown:   time.Hour,
		Conditions: Conditions{NotSleeping: true, MaxHunger: threshold(90)},
	},
	Clean: {
		Happiness: 5, Hunger: 0, Energy: -5, Hygiene: 40,
		Cooldown:   2 * time.Hour,
		Conditions: Conditions{NotSleeping: true},
	},
	Sleep: {
		Happiness: 0, Hunger: -5, Energy: 20, Hygiene: 0,
		Cooldown:   4 * time.Hour,
		Conditions: Conditions{NotSleeping: true, MaxEnergy: threshold(80)},
	},
	Wake: {
		Happiness: 0, Hunger: 0, Energy: 0, Hygiene: 0,
		Cooldown:   30 * time.Minute,
		Conditions: Conditions{IsSleeping: true, MinEnergy: threshold(50)},
	},
	Play: {
		Happiness: 15, Hunger: -10, Energy: -15, Hygiene: -10,
		Cooldown:   time.Hour,
		Conditions: Conditions{NotSleeping: true, MinEnergy: threshold(30)},
	},
	Pet: {
		Happiness: 10, Hunger: 0, Energy: 0, Hygiene: 0,
		Cooldown: 30 * time.Minute,
	},
	Exercise: {
		Happiness: 10, Hunger: -15, Energy: -20, Hygiene: -15,
		Cooldown:   2 * time.Hour,
		Conditions: Conditions{NotSleeping: true, MinEnergy: threshold(40)},
	},
	Treat: {
		Happiness: 20, Hunger: 10, Energy: 5, Hygiene: -5,
		Cooldown:   3 * time.Hour,
		Conditions: Conditions{NotSleeping: true, MaxTreatsPerDay: 3},
	},
	Medicine: {
		Happiness: -5, Hunger: 0, Energy: -10, Hygiene: 20,
		Cooldown:   6 * time.Hour,
		Conditions: Conditions{IsSick: true},
	},
}

// maxCooldown bounds how far back interaction history must be rehydrated
// after a cache miss.
func maxCooldown() time.Duration {
	var max time.Duration
	for _, e := range effects {
		if e.Cooldown > max {
			max = e.Cooldown
		}
	}
	return max
}
