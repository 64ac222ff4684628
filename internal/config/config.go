package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingAPIKey    = errors.New("IMMICH_API_KEY is required")
	ErrMissingImmichURL = errors.New("IMMICH_URL is required")
	ErrMissingDeviceURL = errors.New("GEEKMAGIC_URL is required")
)

type Config struct {
	Immich  ImmichConfig
	Device  DeviceConfig
	Sync    SyncConfig
	Archive ArchiveConfig
	Log     LogConfig
}

type ImmichConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type DeviceConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Prune      bool
}

type SyncConfig struct {
	YearsBack    int
	ImageSize    int
	JPEGQuality  int
	OverrideDate string
	DryRun       bool
	Verify       bool
}

// ArchiveConfig describes an optional S3-compatible bucket that receives a
// copy of every normalized frame. Disabled unless Bucket is set.
type ArchiveConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	Prefix          string
}

func (c *ArchiveConfig) Enabled() bool {
	return c.Bucket != ""
}

type LogConfig struct {
	Level   string
	Console bool
}

func Load() (*Config, error) {
	viper.SetDefault("IMMICH_URL", "")
	viper.SetDefault("IMMICH_API_KEY", "")
	viper.SetDefault("GEEKMAGIC_URL", "")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	viper.SetDefault("MAX_RETRIES", 10)
	viper.SetDefault("RETRY_DELAY_SECONDS", 300)
	viper.SetDefault("PRUNE_DEVICE", true)
	viper.SetDefault("YEARS_BACK", 10)
	viper.SetDefault("IMAGE_SIZE", 240)
	viper.SetDefault("JPEG_QUALITY", 85)
	viper.SetDefault("OVERRIDE_DATE", "")
	viper.SetDefault("ARCHIVE_ENDPOINT", "")
	viper.SetDefault("ARCHIVE_ACCESS_KEY_ID", "")
	viper.SetDefault("ARCHIVE_SECRET_ACCESS_KEY", "")
	viper.SetDefault("ARCHIVE_BUCKET", "")
	viper.SetDefault("ARCHIVE_REGION", "us-east-1")
	viper.SetDefault("ARCHIVE_PREFIX", "memories/")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_CONSOLE", false)

	viper.AutomaticEnv()

	timeout := time.Duration(viper.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second

	cfg := &Config{
		Immich: ImmichConfig{
			URL:     viper.GetString("IMMICH_URL"),
			APIKey:  viper.GetString("IMMICH_API_KEY"),
			Timeout: timeout,
		},
		Device: DeviceConfig{
			URL:        viper.GetString("GEEKMAGIC_URL"),
			Timeout:    timeout,
			MaxRetries: viper.GetInt("MAX_RETRIES"),
			RetryDelay: time.Duration(viper.GetInt("RETRY_DELAY_SECONDS")) * time.Second,
			Prune:      viper.GetBool("PRUNE_DEVICE"),
		},
		Sync: SyncConfig{
			YearsBack:    viper.GetInt("YEARS_BACK"),
			ImageSize:    viper.GetInt("IMAGE_SIZE"),
			JPEGQuality:  viper.GetInt("JPEG_QUALITY"),
			OverrideDate: viper.GetString("OVERRIDE_DATE"),
		},
		Archive: ArchiveConfig{
			Endpoint:        viper.GetString("ARCHIVE_ENDPOINT"),
			AccessKeyID:     viper.GetString("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: viper.GetString("ARCHIVE_SECRET_ACCESS_KEY"),
			Bucket:          viper.GetString("ARCHIVE_BUCKET"),
			Region:          viper.GetString("ARCHIVE_REGION"),
			Prefix:          viper.GetString("ARCHIVE_PREFIX"),
		},
		Log: LogConfig{
			Level:   viper.GetString("LOG_LEVEL"),
			Console: viper.GetBool("LOG_CONSOLE"),
		},
	}

	return cfg, nil
}

// Validate fails fast on anything that would make a run pointless. Called
// before any client is constructed so no network traffic happens on bad config.
func (c *Config) Validate() error {
	if c.Immich.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Immich.URL == "" {
		return ErrMissingImmichURL
	}
	if c.Device.URL == "" {
		return ErrMissingDeviceURL
	}
	if c.Device.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0, got %d", c.Device.MaxRetries)
	}
	if c.Device.RetryDelay < 0 {
		return fmt.Errorf("RETRY_DELAY_SECONDS must be >= 0")
	}
	if c.Sync.YearsBack < 1 {
		return fmt.Errorf("YEARS_BACK must be >= 1, got %d", c.Sync.YearsBack)
	}
	if c.Sync.ImageSize < 1 {
		return fmt.Errorf("IMAGE_SIZE must be >= 1, got %d", c.Sync.ImageSize)
	}
	return nil
}
