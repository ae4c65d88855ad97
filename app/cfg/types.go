package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	FeedsDir          string
	TemplatesDir      string
	Port              string
	APIAccessKey      string
	MaxBodyBytes      int64
	RequestInterval   int
	MaxRetries        int
	WorkerCount       int
	SchedulerInterval int
	CacheTTL          int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
