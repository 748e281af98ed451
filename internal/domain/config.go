package domain

type Config struct {
	Version          string
	ConfigPath       string
	DownloadLocation string                     `yaml:"downloadLocation"`
	NamingTemplate   string                     `yaml:"namingTemplate"`
	CheckInterval    int                        `yaml:"checkInterval"`
	ImageWorkers     int                        `yaml:"imageWorkers"`
	ImageTimeout     int                        `yaml:"imageTimeout"` // in seconds
	SearchPages      int                        `yaml:"searchPages"`
	DatabasePath     string                     `yaml:"databasePath"`
	ArchiveFormat    string                     `yaml:"archiveFormat"`
	ListenAddr       string                     `yaml:"listenAddr"`
	MonitoredManga   map[string]*MonitoredManga `yaml:"monitoredManga"`
	Sources          map[string]*SourceOverride `yaml:"sources"`
	LogPath          string                     `yaml:"logPath"`
	LogLevel         string                     `yaml:"LogLevel"`
	LogMaxSize       int                        `yaml:"logMaxSize"` // in megabytes
	LogMaxBackups    int                        `yaml:"logMaxBackups"`
}

type MonitoredManga struct {
	URL string `yaml:"url"`
}

// SourceOverride is layered on top of the built-in source definition with the same name.
type SourceOverride struct {
	BaseURL          string            `yaml:"baseURL"`
	Headers          map[string]string `yaml:"headers"`
	Timeout          int               `yaml:"timeout"` // in seconds
	Transport        string            `yaml:"transport"`
	CloudflareBypass *bool             `yaml:"cloudflareBypass"`
	Retries          int               `yaml:"retries"`
	Disabled         bool              `yaml:"disabled"`
}
