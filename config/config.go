// Package config 负责 bwmon 的配置：YAML 配置文件、.env / 环境变量覆盖，
// 以及 -i/-o 模块参数的解析
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath         = "/etc/bwmon.yaml"
	DefaultReadInterval = 1.0
	DefaultSleepTime    = 0.02
	DefaultLifetime     = 10
	DefaultXUnit        = "s"
	DefaultYUnit        = "dynamic"
	DefaultFgChar       = "*"
	DefaultBgChar       = "."
	DefaultNoiseChar    = ":"
	DefaultGraphHeight  = 6
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"

	// envPrefix 所有环境变量覆盖项的前缀
	envPrefix = "BWMON_"
)

// Config 一次运行的全部可调参数
type Config struct {
	ReadInterval float64 `yaml:"read_interval"`
	SleepTime    float64 `yaml:"sleep_time"`
	Policy       string  `yaml:"policy"`
	Lifetime     int     `yaml:"lifetime"`
	OnlyRunning  *bool   `yaml:"only_running,omitempty"`

	Input           string `yaml:"input"`
	SecondaryInput  string `yaml:"secondary_input"`
	Output          string `yaml:"output"`
	SecondaryOutput string `yaml:"secondary_output"`

	XUnit       string `yaml:"x_unit"`
	YUnit       string `yaml:"y_unit"`
	FgChar      string `yaml:"fg_char"`
	BgChar      string `yaml:"bg_char"`
	NoiseChar   string `yaml:"noise_char"`
	GraphHeight int    `yaml:"graph_height"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// Default 全部取默认值的配置
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// Load 读取并解析 YAML 配置文件
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// LoadOptional 文件不存在时返回默认配置，其他错误照常返回
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Save 把配置写成 YAML
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ApplyDefaults 把零值字段填上默认值
func ApplyDefaults(cfg *Config) {
	if cfg.ReadInterval == 0 {
		cfg.ReadInterval = DefaultReadInterval
	}
	if cfg.SleepTime == 0 {
		cfg.SleepTime = DefaultSleepTime
	}
	if cfg.Lifetime == 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.OnlyRunning == nil {
		v := true
		cfg.OnlyRunning = &v
	}
	if cfg.XUnit == "" {
		cfg.XUnit = DefaultXUnit
	}
	if cfg.YUnit == "" {
		cfg.YUnit = DefaultYUnit
	}
	if cfg.FgChar == "" {
		cfg.FgChar = DefaultFgChar
	}
	if cfg.BgChar == "" {
		cfg.BgChar = DefaultBgChar
	}
	if cfg.NoiseChar == "" {
		cfg.NoiseChar = DefaultNoiseChar
	}
	if cfg.GraphHeight == 0 {
		cfg.GraphHeight = DefaultGraphHeight
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
}

// fieldCheck 一个字段的取值范围检查，以及越界时的恢复方式
type fieldCheck struct {
	key   string
	value func(*Config) interface{}
	bad   func(*Config) bool
	reset func(*Config)
}

func singleRune(s string) bool { return len([]rune(s)) == 1 }

var checks = []fieldCheck{
	{
		"read_interval",
		func(c *Config) interface{} { return c.ReadInterval },
		func(c *Config) bool { return c.ReadInterval <= 0 },
		func(c *Config) { c.ReadInterval = DefaultReadInterval },
	},
	{
		"sleep_time",
		func(c *Config) interface{} { return c.SleepTime },
		func(c *Config) bool { return c.SleepTime <= 0 },
		func(c *Config) { c.SleepTime = DefaultSleepTime },
	},
	{
		"lifetime",
		func(c *Config) interface{} { return c.Lifetime },
		func(c *Config) bool { return c.Lifetime <= 0 },
		func(c *Config) { c.Lifetime = DefaultLifetime },
	},
	{
		"graph_height",
		func(c *Config) interface{} { return c.GraphHeight },
		func(c *Config) bool { return c.GraphHeight <= 0 },
		func(c *Config) { c.GraphHeight = DefaultGraphHeight },
	},
	{
		"fg_char",
		func(c *Config) interface{} { return c.FgChar },
		func(c *Config) bool { return !singleRune(c.FgChar) },
		func(c *Config) { c.FgChar = DefaultFgChar },
	},
	{
		"bg_char",
		func(c *Config) interface{} { return c.BgChar },
		func(c *Config) bool { return !singleRune(c.BgChar) },
		func(c *Config) { c.BgChar = DefaultBgChar },
	},
	{
		"noise_char",
		func(c *Config) interface{} { return c.NoiseChar },
		func(c *Config) bool { return !singleRune(c.NoiseChar) },
		func(c *Config) { c.NoiseChar = DefaultNoiseChar },
	},
	{
		"log_format",
		func(c *Config) interface{} { return c.LogFormat },
		func(c *Config) bool { return c.LogFormat != "text" && c.LogFormat != "json" },
		func(c *Config) { c.LogFormat = DefaultLogFormat },
	},
}

// Validate 检查取值范围，返回第一个越界的字段
func Validate(cfg Config) error {
	for _, ck := range checks {
		if ck.bad(&cfg) {
			return fmt.Errorf("invalid %s: %v", ck.key, ck.value(&cfg))
		}
	}
	return nil
}

// Sanitize 把越界的字段恢复成默认值并打印警告，返回被修正的字段名
func Sanitize(cfg *Config) []string {
	var fixed []string
	for _, ck := range checks {
		if !ck.bad(cfg) {
			continue
		}
		log.WithField("key", ck.key).Warnf("invalid value %v, using default", ck.value(cfg))
		ck.reset(cfg)
		fixed = append(fixed, ck.key)
	}
	return fixed
}

// Running 是否只显示处于 up 状态的网卡
func (c Config) Running() bool {
	return c.OnlyRunning == nil || *c.OnlyRunning
}

// ApplyEnv 先加载 .env (不存在就跳过)，再用 BWMON_* 环境变量覆盖配置。
// 格式错误的值保留原配置并打印警告
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()

	if raw := getenv("READ_INTERVAL"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			cfg.ReadInterval = v
		} else {
			warnEnv("READ_INTERVAL", raw)
		}
	}
	if raw := getenv("SLEEP_TIME"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			cfg.SleepTime = v
		} else {
			warnEnv("SLEEP_TIME", raw)
		}
	}
	if raw := getenv("LIFETIME"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.Lifetime = v
		} else {
			warnEnv("LIFETIME", raw)
		}
	}
	if raw := getenv("POLICY"); raw != "" {
		cfg.Policy = raw
	}
	if raw := getenv("INPUT"); raw != "" {
		cfg.Input = raw
	}
	if raw := getenv("OUTPUT"); raw != "" {
		cfg.Output = raw
	}
	if raw := getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	if raw := getenv("LOG_FILE"); raw != "" {
		cfg.LogFile = raw
	}
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func warnEnv(key, raw string) {
	log.WithField("env", envPrefix+key).Warnf("ignoring malformed value %q", raw)
}
