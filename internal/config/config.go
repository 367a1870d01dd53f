package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// Notification channels
const (
	ChannelInbox = "inbox"
	ChannelLog   = "log"
	ChannelGmail = "gmail"
	ChannelSMTP  = "smtp"
)

// MaintenancePlan is a recurring maintenance expanded by the scheduler
type MaintenancePlan struct {
	CabinID     string `yaml:"cabinID" validate:"required"`
	RRule       string `yaml:"rrule" validate:"required"`
	Kind        string `yaml:"kind,omitempty" validate:"omitempty,oneof=preventive corrective cleaning repair"`
	Description string `yaml:"description,omitempty"`
}

type LockConfig struct {
	Backend   string        `yaml:"backend" validate:"oneof=memory postgres redis"`
	RedisAddr string        `yaml:"redisAddr,omitempty" validate:"required_if=Backend redis"`
	RedisPass string        `yaml:"redisPassword,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty" validate:"min=0"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	From     string `yaml:"from" validate:"omitempty,email"`
}

type NotificationsConfig struct {
	Channels    []string   `yaml:"channels" validate:"min=1,dive,oneof=inbox log gmail smtp"`
	GmailSender string     `yaml:"gmailSender,omitempty" validate:"omitempty,email"`
	StaffEmail  string     `yaml:"staffEmail,omitempty" validate:"omitempty,email"`
	SMTP        SMTPConfig `yaml:"smtp,omitempty"`
}

// Enabled reports whether the channel is configured
func (n NotificationsConfig) Enabled(channel string) bool {
	return slices.Contains(n.Channels, channel)
}

type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type SchedulerConfig struct {
	// Cron is a standard five field spec
	Cron string `yaml:"cron" validate:"required"`
	// HorizonDays bounds maintenance plan expansion
	HorizonDays int `yaml:"horizonDays" validate:"min=1"`
}

// Config represents the application configuration
type Config struct {
	Store            string              `yaml:"store" validate:"oneof=postgres memory"`
	DatabaseURL      string              `yaml:"databaseURL,omitempty" validate:"required_if=Store postgres"`
	Lock             LockConfig          `yaml:"lock"`
	Notifications    NotificationsConfig `yaml:"notifications"`
	HTTP             HTTPConfig          `yaml:"http"`
	Scheduler        SchedulerConfig     `yaml:"scheduler"`
	MaintenancePlans []MaintenancePlan   `yaml:"maintenancePlans,omitempty" validate:"dive"`
	Currency         string              `yaml:"currency" validate:"len=3"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the settings used for anything a config file leaves out
func Default() Config {
	return Config{
		Store: "memory",
		Lock: LockConfig{
			Backend: "memory",
			TTL:     30 * time.Second,
		},
		Notifications: NotificationsConfig{
			Channels: []string{ChannelInbox, ChannelLog},
			SMTP:     SMTPConfig{Port: 587},
		},
		HTTP:      HTTPConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{Cron: "0 7 * * *", HorizonDays: 60},
		Currency:  "CLP",
	}
}

// Load loads and validates the configuration from cabanas_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment
// For example, env="test" will look for "cabanas_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	name := "cabanas_config.yaml"
	if env != "" {
		name = "cabanas_config." + env + ".yaml"
	}

	configPath, err := locate(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the backends it combines and rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Lock.Backend == "postgres" && cfg.Store != "postgres" {
		return fmt.Errorf("config validation failed: lock backend postgres needs store postgres")
	}

	n := cfg.Notifications
	if n.Enabled(ChannelSMTP) && (n.SMTP.Host == "" || n.SMTP.From == "") {
		return fmt.Errorf("config validation failed: smtp channel needs smtp.host and smtp.from")
	}
	if (n.Enabled(ChannelGmail) || n.Enabled(ChannelSMTP)) && n.StaffEmail == "" {
		return fmt.Errorf("config validation failed: email channels need notifications.staffEmail")
	}

	for i, plan := range cfg.MaintenancePlans {
		if _, err := rrule.StrToRRule(plan.RRule); err != nil {
			return fmt.Errorf("invalid rrule in maintenancePlans[%d]: %w", i, err)
		}
	}

	return nil
}
