package config

// Config holds quill configuration.
// Stored at: ~/.quill/config.yaml
type Config struct {
	Generator GeneratorCfg `mapstructure:"generator" yaml:"generator"`
	Pipeline  PipelineCfg  `mapstructure:"pipeline" yaml:"pipeline"`
	Server    ServerCfg    `mapstructure:"server" yaml:"server"`
	Render    RenderCfg    `mapstructure:"render" yaml:"render"`
	Notify    NotifyCfg    `mapstructure:"notify" yaml:"notify"`
	Ledger    LedgerCfg    `mapstructure:"ledger" yaml:"ledger"`
	Defra     DefraConfig  `mapstructure:"defra" yaml:"defra"`
}

// GeneratorCfg configures the text generation backend.
type GeneratorCfg struct {
	APIKey      string   `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL     string   `mapstructure:"base_url" yaml:"base_url"`
	Model       string   `mapstructure:"model" yaml:"model"`
	Fallbacks   []string `mapstructure:"fallbacks" yaml:"fallbacks"` // tried in order after the primary
	Temperature float64  `mapstructure:"temperature" yaml:"temperature"`
	RateLimit   int      `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute
	TimeoutSecs int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries  int      `mapstructure:"max_retries" yaml:"max_retries"`
}

// PipelineCfg tunes the production pipeline. For the two delays a
// negative value disables the pacing entirely; zero means unset and
// falls back to the pipeline defaults.
type PipelineCfg struct {
	ChapterCount       int `mapstructure:"chapter_count" yaml:"chapter_count"`
	ChapterRetries     int `mapstructure:"chapter_retries" yaml:"chapter_retries"`
	RetryDelaySecs     int `mapstructure:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	NarrativeDelaySecs int `mapstructure:"narrative_delay_seconds" yaml:"narrative_delay_seconds"`
}

// ServerCfg configures the HTTP API server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// RenderCfg configures artifact rendering.
type RenderCfg struct {
	// OutputDir is where finished PDFs land. Empty means
	// {home}/artifacts.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	// Disabled switches rendering off entirely; completed projects then
	// carry no artifact path.
	Disabled bool `mapstructure:"disabled" yaml:"disabled"`
}

// NotifyCfg configures completion notifications. With an empty Host
// notifications are logged instead of mailed.
type NotifyCfg struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	From     string `mapstructure:"from" yaml:"from"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"` // supports ${ENV_VAR} syntax
}

// LedgerCfg seeds the in-process entitlement ledger. Real deployments
// point quill at a billing system instead; these entries exist for
// single-tenant and development use.
type LedgerCfg struct {
	Credits map[string]int    `mapstructure:"credits" yaml:"credits"` // email -> credit balance
	Tiers   map[string]string `mapstructure:"tiers" yaml:"tiers"`     // email -> basic|premium
}

// DefraConfig holds DefraDB container configuration.
type DefraConfig struct {
	// ContainerName is the Docker container name (default: quill-defra)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
	// Disabled runs quill on the in-memory store instead of DefraDB.
	Disabled bool `mapstructure:"disabled" yaml:"disabled"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Generator: GeneratorCfg{
			APIKey:      "${OPENAI_API_KEY}",
			Model:       "gpt-4o",
			Fallbacks:   []string{"gpt-4o-mini"},
			Temperature: 0.7,
			RateLimit:   150,
			TimeoutSecs: 120,
			MaxRetries:  2,
		},
		Pipeline: PipelineCfg{
			ChapterCount:       12,
			ChapterRetries:     3,
			RetryDelaySecs:     2,
			NarrativeDelaySecs: 3,
		},
		Server: ServerCfg{
			Host: "0.0.0.0",
			Port: "8585",
		},
		Notify: NotifyCfg{
			Port:     "587",
			Password: "${QUILL_SMTP_PASSWORD}",
		},
		Defra: DefraConfig{
			ContainerName: "quill-defra",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
	}
}
