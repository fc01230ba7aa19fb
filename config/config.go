package config

import (
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"` // development | production
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// RatingConfig controls the rating/payment core behaviour.
type RatingConfig struct {
	// CacheTTL is the rate table snapshot lifetime in seconds.
	CacheTTL int `yaml:"cache_ttl" json:"cache_ttl"`
	// RefreshCron schedules proactive snapshot refresh, cron syntax.
	RefreshCron string `yaml:"refresh_cron" json:"refresh_cron"`
	// StalePaymentMinutes is the age after which an INITIATED payment is
	// reported as stuck by the background job.
	StalePaymentMinutes int `yaml:"stale_payment_minutes" json:"stale_payment_minutes"`
	// EnforceLimits makes package eligibility limits hard failures instead
	// of advisory data on the breakdown.
	EnforceLimits bool `yaml:"enforce_limits" json:"enforce_limits"`
	// FailOpenPolicyLookup lets payment initiation proceed on policy source
	// outage when the caller supplied enough data to rate locally. Explicit
	// availability-over-enforcement policy; default is fail-closed.
	FailOpenPolicyLookup bool `yaml:"fail_open_policy_lookup" json:"fail_open_policy_lookup"`
	// NodeID seeds the snowflake generator for payment references.
	NodeID int64 `yaml:"node_id" json:"node_id"`
}

type AppConfig struct {
	System   SysConfig    `yaml:"system" json:"system"`
	Database DBConfig     `yaml:"database" json:"database"`
	Logger   LogConfig    `yaml:"logger" json:"logger"`
	Rating   RatingConfig `yaml:"rating" json:"rating"`
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "ZimnatRate",
		Location: "Africa/Harare",
		Workdir:  "/var/zimnat",
		Debug:    true,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "zimnat_v1",
		User:     "postgres",
		Passwd:   "",
		MaxConn:  100,
		IdleConn: 10,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/zimnat/zimnat.log",
	},
	Rating: RatingConfig{
		CacheTTL:            300,
		RefreshCron:         "@every 5m",
		StalePaymentMinutes: 30,
		NodeID:              1,
	},
}

func setEnvValue(name string, f func(v string)) {
	if v, ok := os.LookupEnv(name); ok {
		f(v)
	}
}

// LoadConfig reads the YAML file at cfile when it exists and applies
// environment overrides on top. A missing file yields the defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	setEnvValue("ZIMNAT_SYSTEM_WORKDIR", func(v string) { cfg.System.Workdir = v })
	setEnvValue("ZIMNAT_SYSTEM_DEBUG", func(v string) { cfg.System.Debug = cast.ToBool(v) })
	setEnvValue("ZIMNAT_DB_HOST", func(v string) { cfg.Database.Host = v })
	setEnvValue("ZIMNAT_DB_PORT", func(v string) { cfg.Database.Port = cast.ToInt(v) })
	setEnvValue("ZIMNAT_DB_NAME", func(v string) { cfg.Database.Name = v })
	setEnvValue("ZIMNAT_DB_USER", func(v string) { cfg.Database.User = v })
	setEnvValue("ZIMNAT_DB_PWD", func(v string) { cfg.Database.Passwd = v })
	setEnvValue("ZIMNAT_LOGGER_MODE", func(v string) { cfg.Logger.Mode = v })
	setEnvValue("ZIMNAT_LOGGER_FILE_ENABLE", func(v string) { cfg.Logger.FileEnable = cast.ToBool(v) })
	setEnvValue("ZIMNAT_RATING_CACHE_TTL", func(v string) { cfg.Rating.CacheTTL = cast.ToInt(v) })
	setEnvValue("ZIMNAT_RATING_NODE_ID", func(v string) { cfg.Rating.NodeID = cast.ToInt64(v) })
	setEnvValue("ZIMNAT_RATING_FAIL_OPEN", func(v string) { cfg.Rating.FailOpenPolicyLookup = cast.ToBool(v) })

	return cfg
}
