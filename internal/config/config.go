package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/scheduler"
)

// WeeklyConfig holds the recurring clinic and OR templates
type WeeklyConfig struct {
	Clinics []scheduler.ClinicTemplate `yaml:"clinics" validate:"dive"`
	ORSlots []scheduler.ORTemplate     `yaml:"orSlots" validate:"dive"`
}

// YearlyConfig holds the rotation tables for the academic year
type YearlyConfig struct {
	Rotations            []scheduler.Rotation  `yaml:"rotations" validate:"dive"`
	ExternalRotators     []scheduler.Placement `yaml:"externalRotators" validate:"dive"`
	OffService           []scheduler.Placement `yaml:"offService" validate:"dive"`
	ExamPGY              int                   `yaml:"examPGY" validate:"min=0,max=7"`
	ExamBlock            int                   `yaml:"examBlock" validate:"min=0,max=13"`
	HolidayLeaveCapacity int                   `yaml:"holidayLeaveCapacity" validate:"min=0"`
	HolidayPeriods       []string              `yaml:"holidayPeriods,omitempty"`
}

// Config represents the application configuration
type Config struct {
	RosterSheetID   string `yaml:"rosterSheetID" validate:"required"`
	RosterTab       string `yaml:"rosterTab" validate:"required"`
	LeaveTab        string `yaml:"leaveTab" validate:"required"`
	ScheduleSheetID string `yaml:"scheduleSheetID" validate:"required"`

	DatabaseURL string `yaml:"databaseURL" validate:"required"`

	// RabbitMQURL enables the notification queue when set
	RabbitMQURL       string `yaml:"rabbitmqURL,omitempty"`
	NotificationQueue string `yaml:"notificationQueue,omitempty"`

	GmailSender  string   `yaml:"gmailSender,omitempty"`
	NotifyEmails []string `yaml:"notifyEmails,omitempty" validate:"dive,email"`

	// AcademicYearStart anchors the rotation blocks, format 2006-01-02
	AcademicYearStart string `yaml:"academicYearStart" validate:"required,datetime=2006-01-02"`

	// HolidayRRules are RFC 5545 recurrence rules, HolidayDates explicit 2006-01-02 dates
	HolidayRRules []string `yaml:"holidayRRules,omitempty"`
	HolidayDates  []string `yaml:"holidayDates,omitempty" validate:"dive,datetime=2006-01-02"`

	Rules  rules.Rules  `yaml:"rules"`
	Weekly WeeklyConfig `yaml:"weekly"`
	Yearly YearlyConfig `yaml:"yearly"`
}

// envOverrides are the secrets that may be supplied through the environment
type envOverrides struct {
	DatabaseURL string `env:"DATABASE_URL"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	GmailSender string `env:"GMAIL_SENDER"`
}

const defaultNotificationQueue = "schedule_events"

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="test" will look for "scheduler_config.test.yaml"
func LoadWithEnv(envName string) (*Config, error) {
	configPath, err := findFile(configFileName(envName))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path.
// Unset rules fall back to rules.Default() and environment variables override secrets.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{Rules: rules.Default()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.NotificationQueue == "" {
		cfg.NotificationQueue = defaultNotificationQueue
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv overrides secrets from the environment when the variables are set
func applyEnv(cfg *Config) error {
	overrides, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.RabbitMQURL != "" {
		cfg.RabbitMQURL = overrides.RabbitMQURL
	}
	if overrides.GmailSender != "" {
		cfg.GmailSender = overrides.GmailSender
	}
	return nil
}

// Validate validates the configuration struct, rrule syntax and the engine rules
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, rule := range cfg.HolidayRRules {
		if _, err := rrule.StrToRRule(rule); err != nil {
			return fmt.Errorf("invalid rrule in holidayRRules[%d]: %w", i, err)
		}
	}

	if _, err := calendar.HolidayPeriodDates(time.Now(), cfg.Yearly.HolidayPeriods); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.Rules.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// AcademicYear returns the parsed academic year start
func (c *Config) AcademicYear() (time.Time, error) {
	start, err := calendar.ParseDate(c.AcademicYearStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid academicYearStart: %w", err)
	}
	return start, nil
}

// Holidays expands the configured holiday rules and dates over a period
func (c *Config) Holidays(period model.Period) (calendar.Holidays, error) {
	dates := make([]time.Time, 0, len(c.HolidayDates))
	for _, s := range c.HolidayDates {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday date %q: %w", s, err)
		}
		dates = append(dates, d)
	}

	holidays, err := calendar.ExpandHolidays(c.HolidayRRules, dates, period)
	if err != nil {
		return nil, fmt.Errorf("failed to expand holidays: %w", err)
	}
	return holidays, nil
}

// Blocks returns the rotation blocks of the configured academic year
func (c *Config) Blocks() ([]model.RotationBlock, error) {
	start, err := c.AcademicYear()
	if err != nil {
		return nil, err
	}

	periods := c.Yearly.HolidayPeriods
	if len(periods) == 0 {
		periods = scheduler.DefaultHolidayPeriods
	}
	anchors, err := calendar.HolidayPeriodDates(start, periods)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve holiday periods: %w", err)
	}

	return calendar.GenerateRotationBlocks(start, calendar.BlocksPerYear, calendar.BlockLengthDays, anchors), nil
}

func configFileName(envName string) string {
	if envName == "" {
		return "scheduler_config.yaml"
	}
	return "scheduler_config." + envName + ".yaml"
}

// findFile searches for a file in the current directory and then the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
