package pet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/regen2moon/tomibotchi/internal/models"
	"github.com/regen2moon/tomibotchi/internal/store"
)

// ErrPetNotFound is returned when no active pet exists for the id.
var ErrPetNotFound = errors.New("pet not found")

// Repository defines what the pet engine needs from the persistent store.
type Repository interface {
	CreatePet(ctx context.Context, userID, guildID int64, name, species string) (int64, error)
	GetPet(ctx context.Context, petID int64) (*models.Pet, *models.PetStats, error)
	GetPetByOwner(ctx context.Context, userID, guildID int64) (*models.Pet, *models.PetStats, error)
	UpdatePetStats(ctx context.Context, petID int64, stats models.PetStats) error
	InsertInteraction(ctx context.Context, rec models.InteractionRecord) (int64, error)
	RecentInteractions(ctx context.Context, petID int64, since time.Time) ([]models.InteractionRecord, error)
}

// PostgresRepository implements Repository over the persistence gateway.
type PostgresRepository struct {
	store *store.Store
}

// NewPostgresRepository creates a pet repository.
func NewPostgresRepository(s *store.Store) *PostgresRepository {
	return &PostgresRepository{store: s}
}

// CreatePet inserts the pet row and its stats row, all stats at 100.
func (r *PostgresRepository) CreatePet(ctx context.Context, userID, guildID int64, name, species string) (int64, error) {
	petID, err := r.store.ExecReturningID(ctx, `
		INSERT INTO pets (user_id, guild_id, name, species, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING pet_id`,
		userID, guildID, name, species)
	if err != nil {
		return 0, fmt.Errorf("failed to create pet: %w", err)
	}

	if _, err := r.store.Exec(ctx, `
		INSERT INTO pet_stats (pet_id, happiness, hunger, energy, hygiene, last_update)
		VALUES ($1, 100, 100, 100, 100, NOW())`, petID); err != nil {
		return 0, fmt.Errorf("failed to initialize pet stats: %w", err)
	}
	return petID, nil
}

const petQuery = `
	SELECT p.pet_id, p.user_id, p.guild_id, p.name, p.species, p.active,
		ps.happiness, ps.hunger, ps.energy, ps.hygiene, ps.last_update
	FROM pets p
	INNER JOIN pet_stats ps ON p.pet_id = ps.pet_id
	WHERE p.active = TRUE AND `

func (r *PostgresRepository) GetPet(ctx context.Context, petID int64) (*models.Pet, *models.PetStats, error) {
	return r.getPet(ctx, petQuery+`p.pet_id = $1`, petID)
}

func (r *PostgresRepository) GetPetByOwner(ctx context.Context, userID, guildID int64) (*models.Pet, *models.PetStats, error) {
	return r.getPet(ctx, petQuery+`p.user_id = $1 AND p.guild_id = $2 ORDER BY p.pet_id DESC LIMIT 1`, userID, guildID)
}

func (r *PostgresRepository) getPet(ctx context.Context, query string, args ...any) (*models.Pet, *models.PetStats, error) {
	var pet *models.Pet
	var stats *models.PetStats
	err := r.store.Select(ctx, func(rows *sql.Rows) error {
		if !rows.Next() {
			return ErrPetNotFound
		}
		var p models.Pet
		var s models.PetStats
		if err := rows.Scan(&p.PetID, &p.UserID, &p.GuildID, &p.Name, &p.Species, &p.Active,
			&s.Happiness, &s.Hunger, &s.Energy, &s.Hygiene, &s.LastUpdate); err != nil {
			return fmt.Errorf("failed to scan pet: %w", err)
		}
		// Stored stats can predate clamping fixes; never hand out an
		// out-of-range value.
		s.Happiness = clamp(s.Happiness)
		s.Hunger = clamp(s.Hunger)
		s.Energy = clamp(s.Energy)
		s.Hygiene = clamp(s.Hygiene)
		pet, stats = &p, &s
		return nil
	}, query, args...)
	if err != nil {
		if errors.Is(err, ErrPetNotFound) {
			return nil, nil, ErrPetNotFound
		}
		return nil, nil, fmt.Errorf("failed to get pet: %w", err)
	}
	return pet, stats, nil
}

func (r *PostgresRepository) UpdatePetStats(ctx context.Context, petID int64, stats models.PetStats) error {
	affected, err := r.store.Exec(ctx, `
		UPDATE pet_stats
		SET happiness = $1, hunger = $2, energy = $3, hygiene = $4, last_update = $5
		WHERE pet_id = $6`,
		stats.Happiness, stats.Hunger, stats.Energy, stats.Hygiene, stats.LastUpdate, petID)
	if err != nil {
		return fmt.Errorf("failed to update pet stats: %w", err)
	}
	if affected == 0 {
		return ErrPetNotFound
	}
	return nil
}

// InsertInteraction appends one audit row with its JSONB stat changes.
func (r *PostgresRepository) InsertInteraction(ctx context.Context, rec models.InteractionRecord) (int64, error) {
	raw, err := rec.StatChanges.Marshal()
	if err != nil {
		return 0, fmt.Errorf("failed to marshal stat changes: %w", err)
	}
	id, err := r.store.ExecReturningID(ctx, `
		INSERT INTO interaction_history (pet_id, user_id, interaction_type, interaction_time, stat_changes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		rec.PetID, rec.UserID, rec.InteractionType, rec.Time,
		pqtype.NullRawMessage{RawMessage: raw, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("failed to insert interaction: %w", err)
	}
	return id, nil
}

// RecentInteractions returns audit rows newer than since, oldest first.
// Used to rehydrate cooldown history after a cache miss.
func (r *PostgresRepository) RecentInteractions(ctx context.Context, petID int64, since time.Time) ([]models.InteractionRecord, error) {
	var records []models.InteractionRecord
	err := r.store.Select(ctx, func(rows *sql.Rows) error {
		// The scan runs from scratch on retry; drop partial results.
		records = records[:0]
		for rows.Next() {
			var rec models.InteractionRecord
			var raw pqtype.NullRawMessage
			if err := rows.Scan(&rec.ID, &rec.PetID, &rec.UserID, &rec.InteractionType, &rec.Time, &raw); err != nil {
				return fmt.Errorf("failed to scan interaction: %w", err)
			}
			if raw.Valid {
				if err := json.Unmarshal(raw.RawMessage, &rec.StatChanges); err != nil {
					return fmt.Errorf("failed to unmarshal stat changes: %w", err)
				}
			}
			records = append(records, rec)
		}
		return nil
	}, `
		SELECT id, pet_id, user_id, interaction_type, interaction_time, stat_changes
		FROM interaction_history
		WHERE pet_id = $1 AND interaction_time >= $2
		ORDER BY interaction_time`, petID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent interactions: %w", err)
	}
	return records, nil
}
