package conf

type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Radar  *Radar  `json:"radar"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

// Data 域名白名单与监控定义的存储位置，Database.Host 为空时退回 SourcesFile 或内存
type Data struct {
	Database    *Database `json:"database"`
	SourcesFile string    `json:"sources_file"`
}

type Database struct {
	Host     string `json:"host"`
	Port     int32  `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type Radar struct {
	Llm         *LLM         `json:"llm"`
	Search      *Search      `json:"search"`
	Watch       *Watch       `json:"watch"`
	Domains     []string     `json:"domains"`
	Log         *Log         `json:"log"`
	Concurrency *Concurrency `json:"concurrency"`
}

type LLM struct {
	BaseUrl     string  `json:"base_url"`
	ApiKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
}

type Search struct {
	Provider    string       `json:"provider"`
	Google      *Google      `json:"google"`
	Tavily      *Tavily      `json:"tavily"`
	Searxng     *SearXNG     `json:"searxng"`
	Readability *Readability `json:"readability"`
}

type Google struct {
	ApiKey    string `json:"api_key"`
	Cx        string `json:"cx"`
	Enabled   *bool  `json:"enabled"`
	BatchSize int32  `json:"batch_size"`
	PageSize  int32  `json:"page_size"`
}

type Tavily struct {
	ApiKey  string `json:"api_key"`
	Enabled *bool  `json:"enabled"`
}

type SearXNG struct {
	BaseUrl string `json:"base_url"`
	Timeout int32  `json:"timeout"`
	Enabled *bool  `json:"enabled"`
}

type Readability struct {
	Enabled *bool `json:"enabled"`
	Timeout int32 `json:"timeout"`
}

type Watch struct {
	MaxResults    int32    `json:"max_results"`
	CacheTtlHours float64  `json:"cache_ttl_hours"`
	CacheSize     int32    `json:"cache_size"`
	WindowWords   int32    `json:"window_words"`
	StrideWords   int32    `json:"stride_words"`
	PdfChars      int32    `json:"pdf_chars"`
	WebChars      int32    `json:"web_chars"`
	FetchTimeout  int32    `json:"fetch_timeout_seconds"`
	Concurrency   int32    `json:"concurrency"`
	Markets       []string `json:"markets"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Concurrency struct {
	Qps int32 `json:"qps"`
	Rpm int32 `json:"rpm"`
}
