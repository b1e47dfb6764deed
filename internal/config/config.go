package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// LLMConfig 生成式模型配置，APIKey 为空时 mock 路径不可用，分类器退化为关键词匹配
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // openai | doubao | qwen
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	TopP         float32       `mapstructure:"top_p"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DebugRequest bool          `mapstructure:"debug_request"`
}

type GenerationConfig struct {
	MinRows              int           `mapstructure:"min_rows"`
	MaxRows              int           `mapstructure:"max_rows"`
	DefaultRows          int           `mapstructure:"default_rows"`
	BatchThreshold       int           `mapstructure:"batch_threshold"`
	BatchSize            int           `mapstructure:"batch_size"`
	LongPromptBatchSize  int           `mapstructure:"long_prompt_batch_size"`
	LongPromptChars      int           `mapstructure:"long_prompt_chars"`
	TruncatedPromptChars int           `mapstructure:"truncated_prompt_chars"`
	MaxRetries           int           `mapstructure:"max_retries"`
	CallTimeout          time.Duration `mapstructure:"call_timeout"`
	ClassifyTimeout      time.Duration `mapstructure:"classify_timeout"`
	BatchDelay           time.Duration `mapstructure:"batch_delay"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	PerBatchTimeout      time.Duration `mapstructure:"per_batch_timeout"`
	HeartbeatInterval    time.Duration `mapstructure:"heartbeat_interval"`
}

type SourcesConfig struct {
	Timeout   time.Duration     `mapstructure:"timeout"`
	UserAgent string            `mapstructure:"user_agent"`
	RateLimit float64           `mapstructure:"rate_limit"`
	RateBurst int               `mapstructure:"rate_burst"`
	BaseURLs  map[string]string `mapstructure:"base_urls"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// 凭证的两个备选环境变量名，按顺序查找
var apiKeyEnvVars = []string{"DATAGEN_API_KEY", "OPENAI_API_KEY"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.debug_request", false)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 0.9)
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("generation.min_rows", 1)
	v.SetDefault("generation.max_rows", 100)
	v.SetDefault("generation.default_rows", 10)
	v.SetDefault("generation.batch_threshold", 15)
	v.SetDefault("generation.batch_size", 10)
	v.SetDefault("generation.long_prompt_batch_size", 5)
	v.SetDefault("generation.long_prompt_chars", 200)
	v.SetDefault("generation.truncated_prompt_chars", 120)
	v.SetDefault("generation.max_retries", 2)
	v.SetDefault("generation.call_timeout", 45*time.Second)
	v.SetDefault("generation.classify_timeout", 10*time.Second)
	v.SetDefault("generation.batch_delay", 500*time.Millisecond)
	v.SetDefault("generation.request_timeout", 60*time.Second)
	v.SetDefault("generation.per_batch_timeout", 45*time.Second)
	v.SetDefault("generation.heartbeat_interval", 15*time.Second)

	v.SetDefault("sources.timeout", 15*time.Second)
	v.SetDefault("sources.user_agent", "datagen-backend/1.0")
	v.SetDefault("sources.rate_limit", 5.0)
	v.SetDefault("sources.rate_burst", 5)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Response-Mode"})
	v.SetDefault("cors.exposed_headers", []string{"Content-Disposition"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load 读取配置：默认值 < 配置文件 < DATAGEN_ 前缀的环境变量。
// 配置文件不存在时只使用默认值。返回的配置在进程生命周期内只读。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DATAGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，如果配置文件中没有设置，则使用环境变量
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = lookupAPIKey()
	}

	cfg.Generation.normalize()
	return cfg, nil
}

func lookupAPIKey() string {
	for _, name := range apiKeyEnvVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

// AIConfigured 是否配置了生成式模型凭证
func (c *Config) AIConfigured() bool {
	return c.LLM.APIKey != ""
}

func (g *GenerationConfig) normalize() {
	if g.MinRows < 1 {
		g.MinRows = 1
	}
	if g.MaxRows < g.MinRows {
		g.MaxRows = g.MinRows
	}
	if g.DefaultRows < g.MinRows || g.DefaultRows > g.MaxRows {
		g.DefaultRows = g.MinRows
	}
	if g.BatchSize < 1 {
		g.BatchSize = 10
	}
	if g.LongPromptBatchSize < 1 || g.LongPromptBatchSize > g.BatchSize {
		g.LongPromptBatchSize = g.BatchSize
	}
	if g.MaxRetries < 0 {
		g.MaxRetries = 0
	}
}

// ClampRows 把行数限制在 [MinRows, MaxRows] 区间内
func (g GenerationConfig) ClampRows(rows int) int {
	if rows < g.MinRows {
		return g.MinRows
	}
	if rows > g.MaxRows {
		return g.MaxRows
	}
	return rows
}

// BatchSizeFor 长提示词使用更小的批次以控制单次调用耗时
func (g GenerationConfig) BatchSizeFor(prompt string) int {
	if g.LongPromptChars > 0 && len([]rune(prompt)) > g.LongPromptChars {
		return g.LongPromptBatchSize
	}
	return g.BatchSize
}

// BatchCount 返回给定行数需要的批次数，低于阈值时为 1
func (g GenerationConfig) BatchCount(prompt string, rows int) int {
	if rows < g.BatchThreshold {
		return 1
	}
	size := g.BatchSizeFor(prompt)
	return (rows + size - 1) / size
}

// RequestTimeoutFor 请求级超时随批次数增长
func (g GenerationConfig) RequestTimeoutFor(prompt string, rows int) time.Duration {
	return g.RequestTimeout + time.Duration(g.BatchCount(prompt, rows))*g.PerBatchTimeout
}

// Default 返回只包含默认值的配置，测试和无配置文件启动时使用
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}
