package model

import "time"

// Config holds the complete engine configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Budget      BudgetConfig      `yaml:"budget" mapstructure:"budget"`
	Research    ResearchConfig    `yaml:"research" mapstructure:"research"`
	Registry    RegistryConfig    `yaml:"registry" mapstructure:"registry"`
	Provenance  ProvenanceConfig  `yaml:"provenance" mapstructure:"provenance"`
	Gates       GatesConfig       `yaml:"gates" mapstructure:"gates"`
	Aggregation AggregationConfig `yaml:"aggregation" mapstructure:"aggregation"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls the page fetcher
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRedirects int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`

	// RequestsPerSecond and Burst feed the per-domain rate limiter
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// SearchConfig controls the web-search client
type SearchConfig struct {
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"` // SearxNG-compatible endpoint
	MaxResults int           `yaml:"max_results" mapstructure:"max_results"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LLMConfig controls the language-model completion interface
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never written to config files
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// BudgetConfig caps research cost and latency
type BudgetConfig struct {
	MaxIterationsPerScope int  `yaml:"max_iterations_per_scope" mapstructure:"max_iterations_per_scope"`
	MaxTotalIterations    int  `yaml:"max_total_iterations" mapstructure:"max_total_iterations"`
	MaxTotalTokens        int  `yaml:"max_total_tokens" mapstructure:"max_total_tokens"`
	MaxTokensPerCall      int  `yaml:"max_tokens_per_call" mapstructure:"max_tokens_per_call"`
	EnforceHard           bool `yaml:"enforce_hard" mapstructure:"enforce_hard"`
}

// ResearchConfig controls the orchestrator loop
type ResearchConfig struct {
	Workers           int           `yaml:"workers" mapstructure:"workers"` // Bounded fanout width
	WallClock         time.Duration `yaml:"wall_clock" mapstructure:"wall_clock"`
	ConvergenceWindow int           `yaml:"convergence_window" mapstructure:"convergence_window"` // Iterations considered for saturation
	MinYield          int           `yaml:"min_yield" mapstructure:"min_yield"`                   // New validated facts per window to stay active
	FetchPerIteration int           `yaml:"fetch_per_iteration" mapstructure:"fetch_per_iteration"`
}

// RegistryConfig controls context canonicalization and dedupe
type RegistryConfig struct {
	DedupeThreshold float64 `yaml:"dedupe_threshold" mapstructure:"dedupe_threshold"` // Similarity required to merge same-type contexts
	PreservePerContext int  `yaml:"preserve_per_context" mapstructure:"preserve_per_context"` // Min facts kept per context when sampling
}

// ProvenanceConfig tunes the fact admission gate
type ProvenanceConfig struct {
	MinExcerptLength int `yaml:"min_excerpt_length" mapstructure:"min_excerpt_length"`

	// ParaphrasePatterns are substrings indicative of model paraphrase
	// rather than quotation. Tunable: natural prose can false-positive.
	ParaphrasePatterns []string `yaml:"paraphrase_patterns" mapstructure:"paraphrase_patterns"`

	// ParaphraseReject controls severity: true rejects matching facts,
	// false flags them but admits.
	ParaphraseReject bool `yaml:"paraphrase_reject" mapstructure:"paraphrase_reject"`
}

// GatesConfig tunes the quality gate pipeline
type GatesConfig struct {
	MinSupportingSources int     `yaml:"min_supporting_sources" mapstructure:"min_supporting_sources"`
	MinSourceReliability float64 `yaml:"min_source_reliability" mapstructure:"min_source_reliability"` // 0-1
	MinAgreement         float64 `yaml:"min_agreement" mapstructure:"min_agreement"`                   // 0-1 inter-source agreement
	ThinCoverageRatio    float64 `yaml:"thin_coverage_ratio" mapstructure:"thin_coverage_ratio"`       // Claims-per-context below this triggers supplemental claims
}

// AggregationConfig tunes verdict aggregation
type AggregationConfig struct {
	DuplicateThreshold float64 `yaml:"duplicate_threshold" mapstructure:"duplicate_threshold"` // Similarity at which claims group as one data point
}

// CacheConfig controls page/search caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	JSON    string `yaml:"json" mapstructure:"json"` // Output path for the result graph
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "Veridict/0.1 (+https://github.com/veridict/veridict)",
			MaxBodyBytes:      2_000_000,
			MaxRedirects:      3,
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Search: SearchConfig{
			MaxResults: 8,
			Timeout:    15 * time.Second,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Budget: BudgetConfig{
			MaxIterationsPerScope: 5,
			MaxTotalIterations:    25,
			MaxTotalTokens:        500_000,
			MaxTokensPerCall:      8_000,
			EnforceHard:           true,
		},
		Research: ResearchConfig{
			Workers:           4,
			WallClock:         10 * time.Minute,
			ConvergenceWindow: 2,
			MinYield:          1,
			FetchPerIteration: 3,
		},
		Registry: RegistryConfig{
			DedupeThreshold:    0.92,
			PreservePerContext: 1,
		},
		Provenance: ProvenanceConfig{
			MinExcerptLength:   20,
			ParaphrasePatterns: DefaultParaphrasePatterns(),
			ParaphraseReject:   true,
		},
		Gates: GatesConfig{
			MinSupportingSources: 2,
			MinSourceReliability: 0.4,
			MinAgreement:         0.6,
			ThinCoverageRatio:    0.5,
		},
		Aggregation: AggregationConfig{
			DuplicateThreshold: 0.85,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
	}
}

// DefaultParaphrasePatterns are the built-in model-paraphrase heuristics.
// Matching an excerpt against these suggests the text was composed by a
// model rather than quoted from a fetched page.
func DefaultParaphrasePatterns() []string {
	return []string{
		"as an ai",
		"i cannot verify",
		"it is widely believed",
		"it is generally accepted",
		"according to my knowledge",
		"based on the search results",
		"the search results indicate",
		"in summary,",
	}
}
