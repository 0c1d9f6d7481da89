package database

import (
	"database/sql"
	"fmt"
)

// BotRepositoryImpl handles database operations for bots
type BotRepositoryImpl struct {
	db *DB
}

var _ BotRepository = (*BotRepositoryImpl)(nil)

// NewBotRepository creates a new bot repository
func NewBotRepository(db *DB) *BotRepositoryImpl {
	return &BotRepositoryImpl{db: db}
}

// UpsertBot registers a bot profile in the database or refreshes its metadata
func (r *BotRepositoryImpl) UpsertBot(id, name, sourceURL string) error {
	_, err := r.db.Exec(`
		INSERT INTO bots (id, name, source_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			source_url = EXCLUDED.source_url,
			updated_at = NOW()
	`, id, name, sourceURL)
	if err != nil {
		return fmt.Errorf("failed to upsert bot: %w", err)
	}

	return nil
}

// GetBot returns a bot record or nil if not registered
func (r *BotRepositoryImpl) GetBot(id string) (*Bot, error) {
	var bot Bot
	err := r.db.QueryRow(`
		SELECT id, name, source_url, created_at, updated_at
		FROM bots
		WHERE id = $1
	`, id).Scan(&bot.ID, &bot.Name, &bot.SourceURL, &bot.CreatedAt, &bot.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}

	return &bot, nil
}

// GetBotCount returns the number of registered bots
func (r *BotRepositoryImpl) GetBotCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM bots").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get bot count: %w", err)
	}
	return count, nil
}
