package api

import "time"

type BotInfo struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	SourceURL           string   `json:"source_url"`
	Enabled             bool     `json:"enabled"`
	Keywords            []string `json:"keywords"`
	Blacklist           []string `json:"blacklist"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	RecencyWindowHours  int      `json:"recency_window_hours"`
}

type BotStats struct {
	BotID    string `json:"bot_id"`
	Name     string `json:"name"`
	Enabled  bool   `json:"enabled"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

type ArticleInfo struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	ImageURL     string    `json:"image_url,omitempty"`
	UsedKeywords []string  `json:"used_keywords"`
	CreatedAt    time.Time `json:"created_at"`
}

type UnwantedInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
