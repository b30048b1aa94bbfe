package models

import (
	"encoding/json"
	"time"
)

// PetStatus is derived from current stats on every update; it is never
// stored or transitioned independently.
type PetStatus string

const (
	PetStatusNormal   PetStatus = "normal"
	PetStatusSleeping PetStatus = "sleeping"
	PetStatusSick     PetStatus = "sick"
	PetStatusUnhappy  PetStatus = "unhappy"
)

// Pet represents a pet row. Active pets participate in decay sweeps.
type Pet struct {
	PetID   int64  `json:"pet_id"`
	UserID  int64  `json:"user_id"`
	GuildID int64  `json:"guild_id"`
	Name    string `json:"name"`
	Species string `json:"species"`
	Active  bool   `json:"active"`
}

// PetStats holds the four core stats, each clamped to [0,100] after every
// update, plus the timestamp decay is computed against.
type PetStats struct {
	Happiness  float64   `json:"happiness"`
	Hunger     float64   `json:"hunger"`
	Energy     float64   `json:"energy"`
	Hygiene    float64   `json:"hygiene"`
	LastUpdate time.Time `json:"last_update"`
}

// StatChanges is the JSONB audit payload recorded with every interaction.
type StatChanges struct {
	Happiness float64 `json:"happiness"`
	Hunger    float64 `json:"hunger"`
	Energy    float64 `json:"energy"`
	Hygiene   float64 `json:"hygiene"`
}

// Marshal returns the JSON encoding used for the stat_changes column.
func (s StatChanges) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// InteractionRecord is one row of the append-only interaction audit log.
type InteractionRecord struct {
	ID              int64       `json:"id"`
	PetID           int64       `json:"pet_id"`
	UserID          int64       `json:"user_id"`
	InteractionType string      `json:"interaction_type"`
	Time            time.Time   `json:"time"`
	StatChanges     StatChanges `json:"stat_changes"`
}
