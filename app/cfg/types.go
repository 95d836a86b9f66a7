package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	SourcesDir   string
	ReceivedDir  string
	Port         string
	WorkerCount  int
	APIAccessKey string
	NoCache      bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
