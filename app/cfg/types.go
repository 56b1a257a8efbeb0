package cfg

type Cfg struct {
	// Storage configuration
	SQLitePath string
	ConfigDir  string
	OutputDir  string

	// LLM configuration
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	ClassifyModel  string
	SummarizeModel string
	SpeechModel    string

	// Ingestion configuration
	YouTubeAPIKey string

	// Delivery configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	EmailTo      string
	DryRun       bool

	// Run modes
	Serve    bool
	Schedule bool

	// Application configuration
	Port         string
	ScheduleSpec string
	AudioEnabled bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
