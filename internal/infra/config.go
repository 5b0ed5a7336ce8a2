package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"ladder_go/internal/domain"
	"ladder_go/internal/ladder"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Config holds every setting of the replay application.
// LoadConfig reads it from YAML and then applies environment overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Replay struct {
		Symbol    string  `yaml:"symbol"`
		Date      string  `yaml:"date"`       // 2006-01-02
		StartTime string  `yaml:"start_time"` // 15:04:05[.000]
		EndTime   string  `yaml:"end_time"`
		Speed     float64 `yaml:"speed"` // 1 = real time
	} `yaml:"replay"`

	Ladder struct {
		RowCount    int             `yaml:"row_count"`
		TickSize    decimal.Decimal `yaml:"tick_size"`
		PriceFormat string          `yaml:"price_format"`
	} `yaml:"ladder"`

	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`

	Feed struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"feed"`

	Frames struct {
		Enabled      bool    `yaml:"enabled"`
		Dir          string  `yaml:"dir"`
		CellWidth    int     `yaml:"cell_width"`
		RowHeight    int     `yaml:"row_height"`
		ColumnColors [][]int `yaml:"column_colors"`
	} `yaml:"frames"`

	Terminal struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"terminal"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used for anything the file leaves out.
func DefaultConfig() Config {
	var c Config
	c.App.Name = "ladder-replay"
	c.App.Version = "0.1.0"
	c.Replay.Speed = 1
	c.Ladder.RowCount = 21
	c.Ladder.TickSize = decimal.RequireFromString("0.25")
	c.Ladder.PriceFormat = "%.2f"
	c.Storage.DBPath = "data/ticks.db"
	c.Feed.Addr = "localhost:8090"
	c.Frames.Dir = "frames"
	c.Frames.CellWidth = 80
	c.Frames.RowHeight = 20
	c.Frames.ColumnColors = [][]int{
		{200, 230, 255}, {120, 170, 255}, {240, 240, 240}, {255, 140, 140}, {255, 210, 210},
	}
	c.Terminal.Enabled = true
	c.Logging.Level = "info"
	c.Logging.Dir = "logs"
	return c
}

// LoadConfig reads and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := overrideWithEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if err := c.LadderConfig().Validate(); err != nil {
		return err
	}

	if c.Replay.Symbol == "" {
		return domain.NewConfigError("replay.symbol", "symbol is required")
	}
	if c.Replay.Speed <= 0 {
		return domain.NewConfigError("replay.speed", "must be positive, got %g", c.Replay.Speed)
	}
	w, err := c.Window()
	if err != nil {
		return err
	}
	if w.End.Before(w.Start) {
		return domain.NewConfigError("replay.end_time", "%s is before start_time %s", c.Replay.EndTime, c.Replay.StartTime)
	}

	if c.Storage.DBPath == "" {
		return domain.NewConfigError("storage.db_path", "path is required")
	}

	if c.Feed.Enabled && c.Feed.Addr == "" {
		return domain.NewConfigError("feed.addr", "address is required when the feed is enabled")
	}

	if c.Frames.Enabled {
		if c.Frames.CellWidth <= 0 || c.Frames.RowHeight <= 0 {
			return domain.NewConfigError("frames", "cell_width and row_height must be positive")
		}
		if len(c.Frames.ColumnColors) != ladder.Columns {
			return domain.NewConfigError("frames.column_colors", "expected %d colours, got %d", ladder.Columns, len(c.Frames.ColumnColors))
		}
		for i, rgb := range c.Frames.ColumnColors {
			if len(rgb) != 3 {
				return domain.NewConfigError("frames.column_colors", "colour %d must have 3 components", i)
			}
			for _, v := range rgb {
				if v < 0 || v > 255 {
					return domain.NewConfigError("frames.column_colors", "colour %d component %d out of range", i, v)
				}
			}
		}
	}

	return nil
}

// LadderConfig returns the immutable ladder geometry for the engine.
func (c *Config) LadderConfig() ladder.Config {
	return ladder.Config{
		RowCount:    c.Ladder.RowCount,
		TickSize:    c.Ladder.TickSize,
		PriceFormat: c.Ladder.PriceFormat,
	}
}

// Window builds the replay window from the date and time-of-day strings (UTC).
func (c *Config) Window() (domain.Window, error) {
	if _, err := time.Parse(dateLayout, c.Replay.Date); err != nil {
		return domain.Window{}, &domain.ConfigError{Field: "replay.date", Err: err}
	}
	start, err := time.Parse(dateTimeLayout, c.Replay.Date+" "+c.Replay.StartTime)
	if err != nil {
		return domain.Window{}, &domain.ConfigError{Field: "replay.start_time", Err: err}
	}
	end, err := time.Parse(dateTimeLayout, c.Replay.Date+" "+c.Replay.EndTime)
	if err != nil {
		return domain.Window{}, &domain.ConfigError{Field: "replay.end_time", Err: err}
	}
	return domain.Window{Symbol: c.Replay.Symbol, Start: start, End: end}, nil
}

// overrideWithEnv replaces settings with environment variables when they are set.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("LADDER_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("LADDER_SYMBOL"); v != "" {
		cfg.Replay.Symbol = v
	}
	if v := os.Getenv("LADDER_DATE"); v != "" {
		cfg.Replay.Date = v
	}
	if v := os.Getenv("LADDER_SPEED"); v != "" {
		speed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &domain.ConfigError{Field: "LADDER_SPEED", Err: err}
		}
		cfg.Replay.Speed = speed
	}
	if v := os.Getenv("LADDER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
