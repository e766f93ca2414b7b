package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// 推荐策略
const (
	StrategyTFIDF     = "tfidf"
	StrategyEmbedding = "embedding"
)

// 标签文本策略
const (
	TagPolicyAuto          = "auto"
	TagPolicyCredits       = "credits"
	TagPolicyGenreOverview = "genre_overview"
)

// ConfigPathEnvVar 指定配置文件路径的环境变量
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths 默认配置文件搜索路径，按顺序取第一个存在的
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config 应用配置
type Config struct {
	Env       string          `koanf:"env" validate:"oneof=development production test"`
	Server    ServerConfig    `koanf:"server"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Recommend RecommendConfig `koanf:"recommend"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port     string `koanf:"port" validate:"required,numeric"`
	SiteName string `koanf:"site_name"`
}

// CatalogConfig 电影目录数据源
type CatalogConfig struct {
	MoviesPath  string `koanf:"movies_path" validate:"required"`
	CreditsPath string `koanf:"credits_path" validate:"required"`
	Watch       bool   `koanf:"watch"`
}

// RecommendConfig 推荐引擎配置
type RecommendConfig struct {
	Strategy  string        `koanf:"strategy" validate:"oneof=tfidf embedding"`
	TagPolicy string        `koanf:"tag_policy" validate:"oneof=auto credits genre_overview"`
	TopN      int           `koanf:"top_n" validate:"min=1,max=100"`
	CacheSize int           `koanf:"cache_size" validate:"min=1"`
	CacheTTL  time.Duration `koanf:"cache_ttl" validate:"min=0"`
}

// TMDBConfig 海报查询配置，APIKey 为空时海报查询降级为“找不到”
type TMDBConfig struct {
	APIKey         string        `koanf:"api_key"`
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	ImageBaseURL   string        `koanf:"image_base_url" validate:"required,url"`
	Timeout        time.Duration `koanf:"timeout" validate:"min=0"`
	CacheTTL       time.Duration `koanf:"cache_ttl" validate:"min=0"`
	RatePerSecond  float64       `koanf:"rate_per_second" validate:"gt=0"`
	BreakerFailure uint32        `koanf:"breaker_failures" validate:"min=1"`
}

// EmbeddingConfig 语义向量模型配置
type EmbeddingConfig struct {
	Host      string `koanf:"host" validate:"required,url"`
	Model     string `koanf:"model" validate:"required"`
	BatchSize int    `koanf:"batch_size" validate:"min=1"`
	Workers   int    `koanf:"workers" validate:"min=1"`
	CacheDir  string `koanf:"cache_dir"`
}

// DatabaseConfig pgvector 镜像库，可选
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// ResolvedTagPolicy 返回实际生效的标签策略，auto 时随推荐策略而定
func (c *Config) ResolvedTagPolicy() string {
	if c.Recommend.TagPolicy != TagPolicyAuto && c.Recommend.TagPolicy != "" {
		return c.Recommend.TagPolicy
	}
	if c.Recommend.Strategy == StrategyEmbedding {
		return TagPolicyGenreOverview
	}
	return TagPolicyCredits
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:     "5005",
			SiteName: "Cinematch",
		},
		Catalog: CatalogConfig{
			MoviesPath:  "data/tmdb_5000_movies.csv",
			CreditsPath: "data/tmdb_5000_credits.csv",
		},
		Recommend: RecommendConfig{
			Strategy:  StrategyTFIDF,
			TagPolicy: TagPolicyAuto,
			TopN:      3,
			CacheSize: 1000,
			CacheTTL:  time.Hour,
		},
		TMDB: TMDBConfig{
			BaseURL:        "https://api.themoviedb.org/3",
			ImageBaseURL:   "https://image.tmdb.org/t/p/w500",
			Timeout:        5 * time.Second,
			CacheTTL:       24 * time.Hour,
			RatePerSecond:  20,
			BreakerFailure: 5,
		},
		Embedding: EmbeddingConfig{
			Host:      "http://localhost:11434",
			Model:     "all-minilm",
			BatchSize: 64,
			Workers:   2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load 加载配置：默认值 -> 配置文件（可选） -> 环境变量
func Load() (*Config, error) {
	// 加载 .env，不存在时直接使用系统环境变量
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("加载默认配置失败: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("加载配置文件 %s 失败: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("加载环境变量失败: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings 环境变量到配置路径的映射，未列出的变量忽略
var envMappings = map[string]string{
	"app_env":              "env",
	"port":                 "server.port",
	"site_name":            "server.site_name",
	"movies_csv":           "catalog.movies_path",
	"credits_csv":          "catalog.credits_path",
	"watch_catalog":        "catalog.watch",
	"recommend_strategy":   "recommend.strategy",
	"tag_policy":           "recommend.tag_policy",
	"recommend_top_n":      "recommend.top_n",
	"recommend_cache_size": "recommend.cache_size",
	"recommend_cache_ttl":  "recommend.cache_ttl",
	"tmdb_api_key":         "tmdb.api_key",
	"tmdb_base_url":        "tmdb.base_url",
	"tmdb_image_base_url":  "tmdb.image_base_url",
	"tmdb_timeout":         "tmdb.timeout",
	"tmdb_cache_ttl":       "tmdb.cache_ttl",
	"tmdb_rate_per_second": "tmdb.rate_per_second",
	"ollama_host":          "embedding.host",
	"ollama_model":         "embedding.model",
	"embedding_batch_size": "embedding.batch_size",
	"embedding_workers":    "embedding.workers",
	"embedding_cache_dir":  "embedding.cache_dir",
	"database_url":         "database.url",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
