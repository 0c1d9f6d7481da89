package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	BotsDir           string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Generation services
	OpenAIEndpoint string
	OpenAIKey      string
	ChatModel      string
	EmbeddingModel string
	ImageModel     string

	// Object storage
	StorageEndpoint string
	StorageKey      string
	StorageBucket   string

	// Notifications
	TelegramToken  string
	TelegramChatID string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
