package database

import (
	"time"
)

// Bot represents a registered bot record in the database.
type Bot struct {
	ID        string // Profile identifier derived from filename
	Name      string
	SourceURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Article represents an accepted article record.
type Article struct {
	ID           string // Database UUID
	BotID        string
	Title        string
	Content      string
	URL          string
	ImageURL     string
	UsedKeywords []string
	CreatedAt    time.Time
}

// UnwantedArticle represents a rejected candidate with its rejection reason.
type UnwantedArticle struct {
	ID          string
	BotID       string
	Title       string
	Content     string
	Reason      string
	URL         string
	PublishedAt *time.Time
	CreatedAt   time.Time
}
