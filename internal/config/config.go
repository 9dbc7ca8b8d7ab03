package config

import (
	"fmt"

	"github.com/spf13/viper"

	"mobility-finance-engine/pkg/errors"
)

type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Governance GovernanceConfig `mapstructure:"governance"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// IdentityConfig 管理员与预言机地址，初始化时注入，不使用全局单例
type IdentityConfig struct {
	AdminAddress  string `mapstructure:"admin_address"`
	OracleAddress string `mapstructure:"oracle_address"`
}

// EngineConfig 公平金融引擎参数
type EngineConfig struct {
	BaseRate          int `mapstructure:"base_rate"`
	MaxRateAdjustment int `mapstructure:"max_rate_adjustment"`
	BonusRatePct      int `mapstructure:"bonus_rate_pct"`
}

type GovernanceConfig struct {
	EquityBoostMultiplier int    `mapstructure:"equity_boost_multiplier"`
	DefaultBoostThreshold int    `mapstructure:"default_boost_threshold"`
	MinProposalDuration   int64  `mapstructure:"min_proposal_duration"`
	QuorumThresholdPct    int    `mapstructure:"quorum_threshold_pct"`
	FinalizeCron          string `mapstructure:"finalize_cron"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.New(errors.ErrConfigLoad, "failed to read config file", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.New(errors.ErrConfigLoad, "failed to unmarshal config", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.base_rate", 8)
	v.SetDefault("engine.max_rate_adjustment", 15)
	v.SetDefault("engine.bonus_rate_pct", 20)
	v.SetDefault("governance.equity_boost_multiplier", 150)
	v.SetDefault("governance.default_boost_threshold", 70)
	v.SetDefault("governance.min_proposal_duration", 3600)
	v.SetDefault("governance.quorum_threshold_pct", 10)
	v.SetDefault("governance.finalize_cron", "0 */5 * * * *")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}
