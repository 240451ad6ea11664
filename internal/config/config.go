package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// 前端静态资源目录，生产环境下由本服务直接托管
	StaticDir string `mapstructure:"static_dir"`

	// 存储后端类型，memory 或 valkey
	StoreType  string `mapstructure:"store_type"`
	ValkeyAddr string `mapstructure:"valkey_addr"`

	// 记录的兜底 TTL，单位秒，每次写入时刷新
	LobbyTTLSeconds int `mapstructure:"lobby_ttl_seconds"`
	GameTTLSeconds  int `mapstructure:"game_ttl_seconds"`

	// 游戏规则相关的可调参数
	MinPlayers         int `mapstructure:"min_players"`
	MatchSize          int `mapstructure:"match_size"`
	CountdownSeconds   int `mapstructure:"countdown_seconds"`
	ReturnDelaySeconds int `mapstructure:"return_delay_seconds"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetConfigFile("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	setDefaults(v)

	// 配置文件允许缺失，此时全部使用默认值
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("加载配置失败: %w", err))
		}
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置失败: %w", err))
	}

	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 3001)
	v.SetDefault("log_level", "info")
	v.SetDefault("static_dir", "./identidraw-fe")

	v.SetDefault("store_type", "memory")
	v.SetDefault("valkey_addr", "localhost:6379")

	v.SetDefault("lobby_ttl_seconds", 7200)
	v.SetDefault("game_ttl_seconds", 3600)

	v.SetDefault("min_players", 3)
	v.SetDefault("match_size", 5)
	v.SetDefault("countdown_seconds", 5)
	v.SetDefault("return_delay_seconds", 5)
}
