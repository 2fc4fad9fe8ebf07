package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Default values applied when a field is missing or invalid
const (
	DefaultConfigPath      = "config/config.yaml"
	DefaultServerPort      = 8090
	DefaultServerMode      = "release"
	DefaultOutputRoot      = "Reports"
	DefaultPieThreshold    = 3.0
	DefaultTopN            = 10 // also the largest accepted top_n
	DefaultChartMachines   = 10
	DefaultComparisonWeeks = 4
	DefaultTopBottomCount  = 7
	DefaultWorkingTime     = "WORKING TIME"
	DefaultRunHistory      = 20
	DefaultScheduleEvery   = 24 * time.Hour
)

// Config global configuration
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Logger   LoggerConfig    `yaml:"logger"`
	Input    InputConfig     `yaml:"input"`
	Output   OutputConfig    `yaml:"output"`
	Analysis AnalysisConfig  `yaml:"analysis"`
	Sections []SectionConfig `yaml:"sections"`
	Runs     RunsConfig      `yaml:"runs"`
	Schedule ScheduleConfig  `yaml:"schedule"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// InputConfig locations of the source tables
type InputConfig struct {
	DowntimeFile string `yaml:"downtime_file"` // .csv or .xlsx
	MetricsFile  string `yaml:"metrics_file"`  // .csv or .xlsx
	FaultyFile   string `yaml:"faulty_file"`   // optional, one machine code per line
	// Dir API file overrides must stay inside it, defaults to the downtime file directory
	Dir string `yaml:"dir"`
}

// OutputConfig artifact settings
type OutputConfig struct {
	Root             string `yaml:"root"`
	SaveCharts       bool   `yaml:"save_charts"`
	ExportLatestWeek bool   `yaml:"export_latest_week"`
	ExportSummary    bool   `yaml:"export_summary"`
	ChartWidthInch   int    `yaml:"chart_width_inch"`
	ChartHeightInch  int    `yaml:"chart_height_inch"`
}

// AnalysisConfig aggregation parameters
type AnalysisConfig struct {
	PieThreshold      float64 `yaml:"pie_threshold"`  // percent, slices below are merged
	TopN              int     `yaml:"top_n"`          // rows per group in the top stops tables, 1..10
	ChartMachines     int     `yaml:"chart_machines"` // machines in the most/least stopped charts
	ComparisonWeeks   int     `yaml:"comparison_weeks"`
	TopBottomCount    int     `yaml:"top_bottom_count"`
	WorkingTimeReason string  `yaml:"working_time_reason"`
	SortByLastWeek    bool    `yaml:"sort_by_last_week"`
}

// SectionConfig one organizational section. Order in the list decides
// which section wins when a machine code is listed more than once.
type SectionConfig struct {
	Name         string   `yaml:"name"`
	Machines     []string `yaml:"machines"`
	MachineCount *int     `yaml:"machine_count,omitempty"` // defaults to len(Machines)
}

// Count returns the configured machine count of the section
func (s SectionConfig) Count() int {
	if s.MachineCount != nil {
		return *s.MachineCount
	}
	return len(s.Machines)
}

// RunsConfig run registry settings
type RunsConfig struct {
	History int `yaml:"history"` // number of finished runs kept in memory
}

// ScheduleConfig periodic report generation
type ScheduleConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Align    bool          `yaml:"align"` // first run on the next interval boundary
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	cfg, err := Load(configPath)
	if err != nil {
		return err
	}

	GlobalConfig = cfg
	return nil
}

// Load reads and validates a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validateSections(cfg.Sections); err != nil {
		return nil, err
	}
	validateAndApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied and no sections
func Default() *Config {
	cfg := &Config{}
	validateAndApplyDefaults(cfg)
	return cfg
}

func validateSections(sections []SectionConfig) error {
	seen := make(map[string]bool, len(sections))
	for i, s := range sections {
		if s.Name == "" {
			return fmt.Errorf("section #%d has no name", i+1)
		}
		if seen[s.Name] {
			return fmt.Errorf("section %q is defined twice", s.Name)
		}
		seen[s.Name] = true
		if s.MachineCount != nil && *s.MachineCount < 0 {
			return fmt.Errorf("section %q has a negative machine_count", s.Name)
		}
	}
	return nil
}

func validateAndApplyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Output == "" {
		cfg.Logger.Output = "console"
	}
	if cfg.Input.Dir == "" {
		cfg.Input.Dir = filepath.Dir(cfg.Input.DowntimeFile)
	}
	if cfg.Output.Root == "" {
		cfg.Output.Root = DefaultOutputRoot
	}
	if cfg.Output.ChartWidthInch <= 0 {
		cfg.Output.ChartWidthInch = 10
	}
	if cfg.Output.ChartHeightInch <= 0 {
		cfg.Output.ChartHeightInch = 6
	}

	a := &cfg.Analysis
	if a.PieThreshold <= 0 || a.PieThreshold >= 100 {
		a.PieThreshold = DefaultPieThreshold
	}
	if a.TopN <= 0 || a.TopN > DefaultTopN {
		a.TopN = DefaultTopN
	}
	if a.ChartMachines <= 0 {
		a.ChartMachines = DefaultChartMachines
	}
	if a.ComparisonWeeks <= 0 {
		a.ComparisonWeeks = DefaultComparisonWeeks
	}
	if a.TopBottomCount <= 0 {
		a.TopBottomCount = DefaultTopBottomCount
	}
	if a.WorkingTimeReason == "" {
		a.WorkingTimeReason = DefaultWorkingTime
	}

	if cfg.Runs.History <= 0 {
		cfg.Runs.History = DefaultRunHistory
	}
	if cfg.Schedule.Interval <= 0 {
		cfg.Schedule.Interval = DefaultScheduleEvery
	}
}
