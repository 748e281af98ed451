package config

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"mangascout/internal/domain"
	"mangascout/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "MANGASCOUT__"

var configTemplate = `# config.yaml

# Download Location
# Chapters are saved below this directory, one folder per title
#
# Default: ""
#
downloadLocation: ""

# Naming Template
# This can be used to change how the downloaded chapter will be named
# The default will result in something like this: Берсерк - 005 - Том 1 Глава 5
#
# Placeholders: {title}, {chapter}, {num}, {source}
#
# Default: {title:<.>} - {num:3}{chapter: - <.>}
#
namingTemplate: "{title:<.>} - {num:3}{chapter: - <.>}"

# Check interval in minutes for the monitor command
#
# Default: 15
#
checkInterval: 15

# Number of images downloaded in parallel per chapter
#
# Default: 4
#
imageWorkers: 4

# Timeout for a single image request in seconds
#
# Default: 60
#
imageTimeout: 60

# Number of result pages requested from every source per search
#
# Default: 1
#
searchPages: 1

# Archive format for downloaded chapters
#
# Default: "none"
#
# Options: "none", "cbz", "pdf"
#
archiveFormat: "none"

# sqlite database that records downloaded chapters
# Leave empty to disable
#
# Optional
#
#databasePath: "mangascout.db"

# Address the serve command listens on
#
# Default: "127.0.0.1:8080"
#
listenAddr: "127.0.0.1:8080"

# Monitored Manga
# The monitor command checks these titles and downloads new chapters
#
monitoredManga:
  # Custom name you can give the entry to easily distinguish between them
  #
  One Punch Man:
    # URL of the title page, the source is picked from the host
    #
    url: "https://readmanga.live/vanpanchmen"

# Source overrides
# Settings layered on top of the built-in source definitions
#
#sources:
#  readmanga:
#    baseURL: "https://readmanga.live"
#    timeout: 30
#    retries: 3
#    cloudflareBypass: false
#    headers:
#      Cookie: ""
#  mangabuff:
#    disabled: true

# mangascout logs file
# If not defined, logs to stdout
# Make sure to use forward slashes and include the filename with extension. e.g. "logs/mangascout.log", "C:/mangascout/logs/mangascout.log"
#
# Optional
#
#logPath: ""

# Log level
#
# Default: "DEBUG"
#
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
#
logLevel: "DEBUG"

# Log Max Size
#
# Default: 50
#
# Max log size in megabytes
#
#logMaxSize: 50

# Log Max Backups
#
# Default: 3
#
# Max amount of old log files
#
#logMaxBackups: 3
`

func (c *AppConfig) writeConfig(configPath string, configFile string) error {
	cfgPath := filepath.Join(configPath, configFile)

	// check if configPath exists, if not create it
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(configPath, os.ModePerm)
		if err != nil {
			log.Println(err)
			return err
		}
	}

	// check if config exists, if not create it
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		f, err := os.Create(cfgPath)
		if err != nil {
			log.Printf("error creating file: %q", err)
			return err
		}
		defer f.Close()

		if _, err = f.WriteString(configTemplate); err != nil {
			log.Printf("error writing contents to file: %v %q", configPath, err)
			return err
		}

		return f.Sync()
	}

	return nil
}

// WriteTemplate creates dir/config.yaml from the template unless it exists
// and returns its path.
func WriteTemplate(dir string) (string, error) {
	c := &AppConfig{}
	return filepath.Join(dir, "config.yaml"), c.writeConfig(dir, "config.yaml")
}

type Config interface {
	UpdateConfig() error
	DynamicReload(log logger.Logger)
}

var _ Config = (*AppConfig)(nil)

type AppConfig struct {
	Config *domain.Config
	v      *viper.Viper
	m      *sync.Mutex
}

func New(configPath string, version string) *AppConfig {
	c := &AppConfig{
		v: viper.New(),
		m: new(sync.Mutex),
	}
	c.defaults()
	c.Config = &domain.Config{
		Version:    version,
		ConfigPath: configPath,
	}

	c.load(configPath)
	c.loadFromEnv()

	return c
}

func (c *AppConfig) defaults() {
	c.v.SetDefault("downloadLocation", "")
	c.v.SetDefault("namingTemplate", "{title:<.>} - {num:3}{chapter: - <.>}")
	c.v.SetDefault("checkInterval", 15)
	c.v.SetDefault("imageWorkers", 4)
	c.v.SetDefault("imageTimeout", 60)
	c.v.SetDefault("searchPages", 1)
	c.v.SetDefault("databasePath", "")
	c.v.SetDefault("archiveFormat", "none")
	c.v.SetDefault("listenAddr", "127.0.0.1:8080")
	c.v.SetDefault("monitoredManga", make(map[string]*domain.MonitoredManga))
	c.v.SetDefault("sources", make(map[string]*domain.SourceOverride))
	c.v.SetDefault("logPath", "")
	c.v.SetDefault("logLevel", "DEBUG")
	c.v.SetDefault("logMaxSize", 50)
	c.v.SetDefault("logMaxBackups", 3)
}

func (c *AppConfig) loadFromEnv() {
	envs := os.Environ()
	for _, env := range envs {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}

		key, value, _ := strings.Cut(env, "=")
		if value == "" {
			continue
		}

		switch key {
		case envPrefix + "DOWNLOAD_LOCATION":
			c.Config.DownloadLocation = value
		case envPrefix + "NAMING_TEMPLATE":
			c.Config.NamingTemplate = value
		case envPrefix + "CHECK_INTERVAL":
			setPositive(&c.Config.CheckInterval, value)
		case envPrefix + "IMAGE_WORKERS":
			setPositive(&c.Config.ImageWorkers, value)
		case envPrefix + "IMAGE_TIMEOUT":
			setPositive(&c.Config.ImageTimeout, value)
		case envPrefix + "SEARCH_PAGES":
			setPositive(&c.Config.SearchPages, value)
		case envPrefix + "DATABASE_PATH":
			c.Config.DatabasePath = value
		case envPrefix + "ARCHIVE_FORMAT":
			c.Config.ArchiveFormat = value
		case envPrefix + "LISTEN_ADDR":
			c.Config.ListenAddr = value
		case envPrefix + "LOG_LEVEL":
			c.Config.LogLevel = value
		case envPrefix + "LOG_PATH":
			c.Config.LogPath = value
		case envPrefix + "LOG_MAX_SIZE":
			setPositive(&c.Config.LogMaxSize, value)
		case envPrefix + "LOG_MAX_BACKUPS":
			setPositive(&c.Config.LogMaxBackups, value)
		}
	}
}

func setPositive(dst *int, value string) {
	if i, _ := strconv.ParseInt(value, 10, 32); i > 0 {
		*dst = int(i)
	}
}

func (c *AppConfig) load(configPath string) {
	c.v.SetConfigType("yaml")

	// clean trailing slash from configPath
	configPath = path.Clean(configPath)
	if configPath != "" && configPath != "." {
		// check if path and file exists
		// if not, create path and file
		if err := c.writeConfig(configPath, "config.yaml"); err != nil {
			log.Printf("write error: %q", err)
		}

		c.v.SetConfigFile(path.Join(configPath, "config.yaml"))
	} else {
		c.v.SetConfigName("config")

		// Search config in directories
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME/.config/mangascout")
		c.v.AddConfigPath("$HOME/.mangascout")
	}

	// read config
	if err := c.v.ReadInConfig(); err != nil {
		log.Printf("config read error: %q", err)
	}

	if err := c.v.Unmarshal(c.Config); err != nil {
		log.Fatalf("Could not unmarshal config file: %v: err %q", c.v.ConfigFileUsed(), err)
	}
}

// Validate checks the settings the download paths depend on.
func (c *AppConfig) Validate() error {
	switch c.Config.ArchiveFormat {
	case "", "none", "cbz", "pdf":
	default:
		return domain.NewError(domain.KindInvalidConfig, "validate config", "", fmt.Errorf("unknown archiveFormat %q", c.Config.ArchiveFormat))
	}
	for name, m := range c.Config.MonitoredManga {
		if m == nil || m.URL == "" {
			return domain.NewError(domain.KindInvalidConfig, "validate config", "", fmt.Errorf("monitored manga %q has no url", name))
		}
	}
	return nil
}

func (c *AppConfig) DynamicReload(log logger.Logger) {
	c.v.WatchConfig()

	c.v.OnConfigChange(func(_ fsnotify.Event) {
		c.m.Lock()
		defer c.m.Unlock()

		logLevel := c.v.GetString("logLevel")
		c.Config.LogLevel = logLevel
		log.SetLogLevel(c.Config.LogLevel)

		logPath := c.v.GetString("logPath")
		c.Config.LogPath = logPath

		log.Debug().Msg("config file reloaded!")
	})
}

func (c *AppConfig) UpdateConfig() error {
	if c.Config.ConfigPath == "" {
		return nil
	}
	filePath := path.Join(c.Config.ConfigPath, "config.yaml")

	f, err := os.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "could not read config filePath: %s", filePath)
	}

	lines := strings.Split(string(f), "\n")
	lines = c.processLines(lines)

	output := strings.Join(lines, "\n")
	if err := os.WriteFile(filePath, []byte(output), 0o644); err != nil {
		return errors.Wrapf(err, "could not write config file: %s", filePath)
	}

	return nil
}

func (c *AppConfig) processLines(lines []string) []string {
	// keep track of not found values to append at bottom
	var (
		foundLineLogLevel = false
		foundLineLogPath  = false
	)

	for i, line := range lines {
		if !foundLineLogLevel && strings.Contains(line, "logLevel:") {
			lines[i] = fmt.Sprintf(`logLevel: "%s"`, c.Config.LogLevel)
			foundLineLogLevel = true
		}
		if !foundLineLogPath && strings.Contains(line, "logPath:") {
			if c.Config.LogPath == "" {
				lines[i] = `#logPath: ""`
			} else {
				lines[i] = fmt.Sprintf(`logPath: "%s"`, c.Config.LogPath)
			}
			foundLineLogPath = true
		}
	}

	if !foundLineLogLevel {
		lines = append(lines,
			"# Log level",
			"#",
			`# Default: "DEBUG"`,
			"#",
			`# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"`,
			"#",
			fmt.Sprintf(`logLevel: "%s"`, c.Config.LogLevel),
		)
	}

	if !foundLineLogPath {
		lines = append(lines, "# Log Path", "#", "# Optional", "#")
		if c.Config.LogPath == "" {
			lines = append(lines, `#logPath: ""`)
		} else {
			lines = append(lines, fmt.Sprintf(`logPath: "%s"`, c.Config.LogPath))
		}
	}

	return lines
}
