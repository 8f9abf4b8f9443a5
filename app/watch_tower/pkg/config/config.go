package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// DefaultMarkets 默认可选市场
var DefaultMarkets = []string{
	"EU (CE)",
	"USA (FDA)",
	"China (NMPA)",
	"UK (UKCA)",
	"Japan (PMDA)",
	"Canada (Health Canada)",
	"Australia (TGA)",
	"Brazil (ANVISA)",
	"South Korea (MFDS)",
	"Switzerland (Swissmedic)",
}

const (
	MinMaxResults = 1
	MaxMaxResults = 100
)

// Config 项目配置结构体
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	Watch       WatchConfig       `yaml:"watch"`
	Domains     []string          `yaml:"domains"`
	Log         LogConfig         `yaml:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	DB          DBConfig          `yaml:"db"`
}

// LLMConfig LLM 相关配置
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// DBConfig 数据库相关配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider    string            `yaml:"provider"`
	Google      GoogleConfig      `yaml:"google"`
	SearXNG     SearXNGConfig     `yaml:"searxng"`
	Tavily      TavilyConfig      `yaml:"tavily"`
	Readability ReadabilityConfig `yaml:"readability"`
}

// GoogleConfig Google Programmable Search 配置
type GoogleConfig struct {
	APIKey    string `yaml:"api_key"`
	CX        string `yaml:"cx"`
	Enabled   *bool  `yaml:"enabled"`
	BatchSize int    `yaml:"batch_size"`
	PageSize  int    `yaml:"page_size"`
}

// TavilyConfig Tavily 配置 (发现或正文抽取)
type TavilyConfig struct {
	APIKey  string `yaml:"api_key"`
	Enabled *bool  `yaml:"enabled"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
	Enabled *bool  `yaml:"enabled"`
}

// ReadabilityConfig 直接抓取网页正文的兜底配置
type ReadabilityConfig struct {
	Enabled *bool `yaml:"enabled"`
	Timeout int   `yaml:"timeout"`
}

// WatchConfig 监控流水线参数
type WatchConfig struct {
	MaxResults    int      `yaml:"max_results"`
	CacheTTLHours float64  `yaml:"cache_ttl_hours"`
	CacheSize     int      `yaml:"cache_size"`
	WindowWords   int      `yaml:"window_words"`
	StrideWords   int      `yaml:"stride_words"`
	PDFChars      int      `yaml:"pdf_chars"`
	WebChars      int      `yaml:"web_chars"`
	FetchTimeout  int      `yaml:"fetch_timeout_seconds"`
	Concurrency   int      `yaml:"concurrency"`
	Markets       []string `yaml:"markets"`
	SourcesFile   string   `yaml:"sources_file"` // 未配置数据库时域名与监控定义的 YAML 文件
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConcurrencyConfig 并发控制配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// LoadConfig 从指定路径加载配置，填充默认值并校验
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults 为未设置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.Search.Provider == "" {
		c.Search.Provider = "google"
	}
	if c.Search.Google.BatchSize == 0 {
		c.Search.Google.BatchSize = 8
	}
	if c.Search.Google.PageSize == 0 {
		c.Search.Google.PageSize = 10
	}
	if c.Search.Readability.Timeout == 0 {
		c.Search.Readability.Timeout = 15
	}
	w := &c.Watch
	if w.MaxResults == 0 {
		w.MaxResults = 10
	}
	if w.CacheTTLHours == 0 {
		w.CacheTTLHours = 1
	}
	if w.CacheSize == 0 {
		w.CacheSize = 256
	}
	if w.WindowWords == 0 {
		w.WindowWords = 500
	}
	if w.StrideWords == 0 {
		w.StrideWords = 100
	}
	if w.PDFChars == 0 {
		w.PDFChars = 4000
	}
	if w.WebChars == 0 {
		w.WebChars = 8000
	}
	if w.FetchTimeout == 0 {
		w.FetchTimeout = 15
	}
	if w.Concurrency == 0 {
		w.Concurrency = 20
	}
	if len(w.Markets) == 0 {
		w.Markets = append([]string(nil), DefaultMarkets...)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
}

// Validate 校验取值范围，越界时快速失败
func (c *Config) Validate() error {
	var errs []error
	switch c.Search.Provider {
	case "google", "searxng", "tavily":
	default:
		errs = append(errs, fmt.Errorf("unknown search provider %q", c.Search.Provider))
	}
	if c.Watch.MaxResults < MinMaxResults || c.Watch.MaxResults > MaxMaxResults {
		errs = append(errs, fmt.Errorf("watch.max_results must be within [%d,%d], got %d",
			MinMaxResults, MaxMaxResults, c.Watch.MaxResults))
	}
	if c.Watch.CacheTTLHours < 0 {
		errs = append(errs, fmt.Errorf("watch.cache_ttl_hours must not be negative, got %v", c.Watch.CacheTTLHours))
	}
	if c.Search.Google.PageSize < 1 || c.Search.Google.PageSize > 10 {
		errs = append(errs, fmt.Errorf("search.google.page_size must be within [1,10], got %d", c.Search.Google.PageSize))
	}
	if c.Search.Google.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("search.google.batch_size must be positive, got %d", c.Search.Google.BatchSize))
	}
	if c.Watch.StrideWords > c.Watch.WindowWords {
		errs = append(errs, fmt.Errorf("watch.stride_words (%d) must not exceed watch.window_words (%d)",
			c.Watch.StrideWords, c.Watch.WindowWords))
	}
	if c.Concurrency.QPS < 0 || c.Concurrency.RPM < 0 {
		errs = append(errs, errors.New("concurrency.qps and concurrency.rpm must not be negative"))
	}
	return errors.Join(errs...)
}

// Flags 当前生效的功能开关，每次编排开始时读取一次
func (c *Config) Flags() Flags {
	return Flags{
		DiscoveryEnabled:   c.discoveryEnabled(),
		ContentEnabled:     enabled(c.Search.Tavily.Enabled, c.Search.Tavily.APIKey != ""),
		ReadabilityEnabled: enabled(c.Search.Readability.Enabled, true),
		MaxResults:         c.Watch.MaxResults,
		CacheTTL:           time.Duration(c.Watch.CacheTTLHours * float64(time.Hour)),
	}
}

func (c *Config) discoveryEnabled() bool {
	switch strings.ToLower(c.Search.Provider) {
	case "searxng":
		return enabled(c.Search.SearXNG.Enabled, true)
	case "tavily":
		return enabled(c.Search.Tavily.Enabled, true)
	default:
		return enabled(c.Search.Google.Enabled, true)
	}
}

// FetchTimeoutDuration 单次文档下载超时
func (w WatchConfig) FetchTimeoutDuration() time.Duration {
	return time.Duration(w.FetchTimeout) * time.Second
}

// TimeoutDuration 直接抓取网页正文的单次超时
func (r ReadabilityConfig) TimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// NewLimiter 按 RPM/QPS 构建限流器，未配置时不限流
func (c ConcurrencyConfig) NewLimiter() *rate.Limiter {
	if c.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := c.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(c.RPM)/60.0), burst)
}

func enabled(flag *bool, fallback bool) bool {
	if flag == nil {
		return fallback
	}
	return *flag
}
