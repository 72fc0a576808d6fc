package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	fileName     = "effortline.yml"
	tomlFileName = "effortline.toml"

	// DateLayout is the calendar date format used for task dates and min_date.
	DateLayout = "2006-01-02"

	DuplicateRedirect = "redirect"
	DuplicateReject   = "reject"
)

// Config models effortline.yml (or effortline.toml).
type Config struct {
	Entry  EntryPolicy  `yaml:"entry" toml:"entry"`
	Rating RatingPolicy `yaml:"rating" toml:"rating"`
	Admins []string     `yaml:"admins" toml:"admins"`
}

// EntryPolicy bounds what a draft entry may contain.
type EntryPolicy struct {
	Departments    []string `yaml:"departments" toml:"departments"`
	Types          []string `yaml:"types" toml:"types"`
	MaxDealName    int      `yaml:"max_deal_name" toml:"max_deal_name"`
	MaxHours       float64  `yaml:"max_hours" toml:"max_hours"`
	MaxDescription int      `yaml:"max_description" toml:"max_description"`
	MinDate        string   `yaml:"min_date" toml:"min_date"`
}

// RatingPolicy bounds rating values and picks how a repeated rate is handled.
type RatingPolicy struct {
	Min         int    `yaml:"min" toml:"min"`
	Max         int    `yaml:"max" toml:"max"`
	OnDuplicate string `yaml:"on_duplicate" toml:"on_duplicate"`
}

// MinTaskDate returns the parsed entry.min_date.
func (p EntryPolicy) MinTaskDate() time.Time {
	t, err := time.Parse(DateLayout, p.MinDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// InRange reports whether v lies in the closed rating interval.
func (p RatingPolicy) InRange(v int) bool {
	return v >= p.Min && v <= p.Max
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Entry.Departments) == 0 {
		return fmt.Errorf("config.entry.departments is required")
	}
	if err := noBlank("config.entry.departments", c.Entry.Departments); err != nil {
		return err
	}
	if len(c.Entry.Types) == 0 {
		return fmt.Errorf("config.entry.types is required")
	}
	if err := noBlank("config.entry.types", c.Entry.Types); err != nil {
		return err
	}
	if c.Entry.MaxDealName <= 0 {
		return fmt.Errorf("config.entry.max_deal_name must be positive")
	}
	if c.Entry.MaxHours <= 0 {
		return fmt.Errorf("config.entry.max_hours must be positive")
	}
	if c.Entry.MaxDescription <= 0 {
		return fmt.Errorf("config.entry.max_description must be positive")
	}
	if _, err := time.Parse(DateLayout, c.Entry.MinDate); err != nil {
		return fmt.Errorf("config.entry.min_date must be YYYY-MM-DD: %w", err)
	}
	if c.Rating.Min > c.Rating.Max {
		return fmt.Errorf("config.rating.min (%d) exceeds config.rating.max (%d)", c.Rating.Min, c.Rating.Max)
	}
	switch c.Rating.OnDuplicate {
	case DuplicateRedirect, DuplicateReject:
	case "":
		c.Rating.OnDuplicate = DuplicateRedirect
	default:
		return fmt.Errorf("config.rating.on_duplicate must be %s or %s", DuplicateRedirect, DuplicateReject)
	}
	return noBlank("config.admins", c.Admins)
}

func noBlank(field string, items []string) error {
	for i, s := range items {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s[%d] is empty", field, i)
		}
	}
	return nil
}

// Path returns the YAML config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, fileName)
}

// TOMLPath returns the TOML config file path for a workspace.
func TOMLPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, tomlFileName)
}

// Load reads and validates config from workspace. effortline.yml wins over
// effortline.toml when both exist.
func Load(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config %s not found; create one with el config init", Path(workspace))
	}
	return cfg, nil
}

// LoadOptional returns nil,nil if no config file exists.
func LoadOptional(workspace string) (*Config, error) {
	for _, path := range []string{Path(workspace), TOMLPath(workspace)} {
		cfg, err := FromFile(path)
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, nil
}

// LoadOrDefault returns the workspace config, or Default when none exists.
func LoadOrDefault(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// Default returns the built-in policy.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("default config template: %v", err))
	}
	return cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromTOML parses and validates config from raw TOML bytes.
func FromTOML(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("invalid config toml: unknown key %s", undecoded[0])
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads config from the given path, picking the format by extension.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FromTOML(data)
	}
	return FromYAML(data)
}

const defaultTemplate = `entry:
  departments:
    - Technology
    - AMP
    - Sales/Fundraise
    - Debrief
    - Coverage
    - Asset Monitoring
    - CRE
    - Residental
    - Equity Enhancer Product
    - Co-Investments
  types: [Core, Project]
  max_deal_name: 50
  max_hours: 200
  max_description: 1000
  min_date: "2020-01-01"

rating:
  min: 1
  max: 10
  # redirect: rating an already rated submission updates the existing rating
  # reject: the second rate is refused and the caller must update instead
  on_duplicate: redirect

admins: []
`
