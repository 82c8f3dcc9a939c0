package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/jackc/pgx/v5"
)

// SlotMappingRepository keeps the slot mapping document of one rack as a
// single jsonb row.
type SlotMappingRepository struct {
	db   *PostgresClient
	rack string
}

func NewSlotMappingRepository(db *PostgresClient, rack string) *SlotMappingRepository {
	return &SlotMappingRepository{db: db, rack: rack}
}

// Load returns an empty document when the rack has no row yet.
func (r *SlotMappingRepository) Load(ctx context.Context) (*types.SlotMappings, error) {
	var raw []byte
	err := r.db.pool.QueryRow(ctx, `
		SELECT slots FROM slot_mappings WHERE rack = $1
	`, r.rack).Scan(&raw)

	if errors.Is(err, pgx.ErrNoRows) {
		return &types.SlotMappings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slot mappings: %w", err)
	}

	doc := &types.SlotMappings{}
	if err := json.Unmarshal(raw, &doc.Slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slot mappings: %w", err)
	}

	return doc, nil
}

func (r *SlotMappingRepository) Save(ctx context.Context, doc *types.SlotMappings) error {
	slots := doc.Slots
	if slots == nil {
		slots = map[string]string{}
	}

	raw, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slot mappings: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO slot_mappings (rack, slots, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (rack) DO UPDATE
		SET slots = EXCLUDED.slots, updated_at = EXCLUDED.updated_at
	`, r.rack, raw)

	if err != nil {
		return fmt.Errorf("failed to save slot mappings: %w", err)
	}

	return nil
}
