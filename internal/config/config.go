// SPDX-License-Identifier: MIT

// Package config loads and validates the daemon configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AppConfig holds all runtime configuration for the daemon.
type AppConfig struct {
	// Listen is the HTTP listen address.
	Listen string

	// DataDir is the base root. No file operation may resolve outside it.
	DataDir string

	// Overwrite is the default overwrite policy applied when a download
	// request carries no explicit override.
	Overwrite bool

	// DeleteFilePath and DeleteDirPath are the fallback targets used when a
	// delete request omits the path.
	DeleteFilePath string
	DeleteDirPath  string

	// FFmpegBin and FFprobeBin locate the external transform/probe tools.
	FFmpegBin  string
	FFprobeBin string

	// ProbeTimeout bounds a single dimension probe; TransformTimeout bounds
	// a single re-encode.
	ProbeTimeout     time.Duration
	TransformTimeout time.Duration

	// DownloadTimeout is the default total acquisition deadline in seconds,
	// used when a request carries none.
	DownloadTimeout int

	// ResizeWidth and ResizeHeight are the default resize targets.
	ResizeWidth  int
	ResizeHeight int

	// RateLimitPerMinute caps download requests per client IP. Zero
	// disables rate limiting.
	RateLimitPerMinute int
}

// FromEnv builds an AppConfig from environment variables with defaults.
func FromEnv() AppConfig {
	return AppConfig{
		Listen:             ParseString("MEDIADL_LISTEN", ":8080"),
		DataDir:            ParseString("MEDIADL_DATA_DIR", "/data/media"),
		Overwrite:          ParseBool("MEDIADL_OVERWRITE", false),
		DeleteFilePath:     ParseString("MEDIADL_DELETE_FILE_PATH", ""),
		DeleteDirPath:      ParseString("MEDIADL_DELETE_DIR_PATH", ""),
		FFmpegBin:          ParseString("MEDIADL_FFMPEG_BIN", "ffmpeg"),
		FFprobeBin:         ParseString("MEDIADL_FFPROBE_BIN", "ffprobe"),
		ProbeTimeout:       ParseDuration("MEDIADL_PROBE_TIMEOUT", 15*time.Second),
		TransformTimeout:   ParseDuration("MEDIADL_TRANSFORM_TIMEOUT", 10*time.Minute),
		DownloadTimeout:    ParseInt("MEDIADL_DOWNLOAD_TIMEOUT", 300),
		ResizeWidth:        ParseInt("MEDIADL_RESIZE_WIDTH", 640),
		ResizeHeight:       ParseInt("MEDIADL_RESIZE_HEIGHT", 360),
		RateLimitPerMinute: ParseInt("MEDIADL_RATE_LIMIT", 60),
	}
}

// Validate checks the configuration for consistency and ensures the data
// directory exists.
func (c AppConfig) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if !filepath.IsAbs(c.DataDir) {
		return fmt.Errorf("data directory must be absolute: %s", c.DataDir)
	}
	if err := os.MkdirAll(c.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("download timeout must be positive: %d", c.DownloadTimeout)
	}
	if c.ResizeWidth <= 0 || c.ResizeHeight <= 0 {
		return fmt.Errorf("resize dimensions must be positive: %dx%d", c.ResizeWidth, c.ResizeHeight)
	}
	if c.ProbeTimeout <= 0 || c.TransformTimeout <= 0 {
		return fmt.Errorf("tool timeouts must be positive")
	}
	return nil
}
