package bot

// Profile represents a complete topic-bound bot configuration.
// Loaded from a YAML file in the bots directory; the file name
// (without extension) becomes the bot ID.
type Profile struct {
	ID        string          `yaml:"-"`
	Name      string          `yaml:"name"`
	SourceURL string          `yaml:"source_url"`
	Keywords  []string        `yaml:"keywords"`
	Blacklist []string        `yaml:"blacklist"`
	Settings  ProfileSettings `yaml:"settings"`
	Style     ProfileStyle    `yaml:"style"`
}

// ProfileSettings contains bot processing settings.
type ProfileSettings struct {
	Enabled             bool    `yaml:"enabled"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	RecencyWindow       int     `yaml:"recency_window"`     // hours
	RecentWindowSize    int     `yaml:"recent_window_size"` // accepted articles compared for similarity
	RefreshInterval     int     `yaml:"refresh_interval"`   // seconds
	Timeout             int     `yaml:"timeout"`            // seconds, per network call

	// URL exclusion rules applied by the link normalizer
	ExcludedTerms   []string `yaml:"excluded_terms"`
	RedirectorHosts []string `yaml:"redirector_hosts"`
}

// ProfileStyle carries knobs forwarded verbatim to the generation services.
type ProfileStyle struct {
	Tone        string `yaml:"tone"`
	Language    string `yaml:"language"`
	ImagePrompt string `yaml:"image_prompt"`
}
