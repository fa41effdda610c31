package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
)

var ErrMissingCredentials = errors.New("portal username or password is not set")

// ParseConfig 在默认配置之上解析 JSON,未出现的字段保留默认值
func ParseConfig(byteConfig []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(byteConfig, cfg); err != nil {
		return nil, err
	}
	if cfg.Browser.UserDataDir != "" {
		absPath, err := filepath.Abs(cfg.Browser.UserDataDir)
		if err != nil {
			return nil, err
		}
		cfg.Browser.UserDataDir = absPath
	}
	return cfg, nil
}

// Load 读取配置文件并用环境变量补全空缺字段,配置文件中的值优先
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("加载 .env 文件失败", slog.Any("error", err))
	}

	cfg := Default()
	if path != "" {
		byteConfig, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		cfg, err = ParseConfig(byteConfig)
		if err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 用 MOODLE_USERNAME / MOODLE_PASSWORD 填充为空的帐号密码
func ApplyEnv(cfg *Config) error {
	env := PortalConfig{
		Username: os.Getenv("MOODLE_USERNAME"),
		Password: os.Getenv("MOODLE_PASSWORD"),
	}
	if err := mergo.Merge(&cfg.Portal, env); err != nil {
		return fmt.Errorf("合并环境变量失败: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return errors.New("portal base_url is not set")
	}
	if c.Portal.Username == "" || c.Portal.Password == "" {
		return ErrMissingCredentials
	}
	switch c.Browser.Driver {
	case DriverChromedp, DriverRod:
	default:
		return fmt.Errorf("unknown browser driver: %q", c.Browser.Driver)
	}
	return nil
}
