package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Resolver escalation modes.
const (
	// EscalationCreate mints a new canonical entity whenever no candidate
	// clears the match threshold.
	EscalationCreate = "create"
	// EscalationDisambiguate consults the disambiguation collaborator for
	// ambiguous mentions before falling back to creation.
	EscalationDisambiguate = "disambiguate"
)

// Config holds all configuration for the entity engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Resolution pipeline tunables
	Resolver ResolverConfig `yaml:"resolver"`

	// Co-occurrence graph tunables
	Graph GraphConfig `yaml:"graph"`

	// Community detection tunables
	Community CommunityConfig `yaml:"community"`

	// Lineage tunables
	Lineage LineageConfig `yaml:"lineage"`

	// Event ingestion tunables
	Ingest IngestConfig `yaml:"ingest"`

	// Collaborator model configuration (theme extraction, disambiguation,
	// narrative). A single provider serves all enabled collaborators.
	LLM LLMConfig `yaml:"llm"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"entitywatch"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"entity_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ResolverConfig holds entity resolution tunables.
type ResolverConfig struct {
	// MatchThreshold is the minimum combined match score for a probabilistic
	// bind. Mentions scoring below it escalate.
	MatchThreshold float64 `yaml:"match_threshold" env:"RESOLVER_MATCH_THRESHOLD" env-default:"0.85"`

	// AmbiguityMargin is the score distance within which the top two
	// candidates count as ambiguous at escalation time.
	AmbiguityMargin float64 `yaml:"ambiguity_margin" env:"RESOLVER_AMBIGUITY_MARGIN" env-default:"0.05"`

	// EscalationMode selects what happens when no candidate qualifies:
	// "create" mints a new entity immediately, "disambiguate" consults the
	// disambiguation collaborator for ambiguous mentions first.
	EscalationMode string `yaml:"escalation_mode" env:"RESOLVER_ESCALATION_MODE" env-default:"create"`

	// MaxCandidates caps how many blocked candidates are scored per mention.
	MaxCandidates int `yaml:"max_candidates" env:"RESOLVER_MAX_CANDIDATES" env-default:"50"`
}

// GraphConfig holds co-occurrence graph tunables.
type GraphConfig struct {
	// MinCooccurrence is the default shared-event count an entity pair needs
	// before it becomes an edge. Requests may override it per call.
	MinCooccurrence int `yaml:"min_cooccurrence" env:"GRAPH_MIN_COOCCURRENCE" env-default:"3"`

	// MaxWindowDays rejects windows wider than this many days.
	MaxWindowDays int `yaml:"max_window_days" env:"GRAPH_MAX_WINDOW_DAYS" env-default:"730"`
}

// CommunityConfig holds community detection tunables.
type CommunityConfig struct {
	// Resolution is the modularity resolution parameter. 1.0 is standard
	// Louvain; higher values favor smaller communities.
	Resolution float64 `yaml:"resolution" env:"COMMUNITY_RESOLUTION" env-default:"1.0"`

	// Seed fixes the random source so member sets are reproducible.
	Seed uint64 `yaml:"seed" env:"COMMUNITY_SEED" env-default:"1"`
}

// LineageConfig holds lineage tunables.
type LineageConfig struct {
	// EscalationThresholdPct flags escalation when risk rises by more than
	// this percentage between the first and last lineage event.
	EscalationThresholdPct float64 `yaml:"escalation_threshold_pct" env:"LINEAGE_ESCALATION_THRESHOLD_PCT" env-default:"20"`

	// MaxEvents caps how many events a single lineage may carry.
	MaxEvents int `yaml:"max_events" env:"LINEAGE_MAX_EVENTS" env-default:"500"`
}

// IngestConfig holds event ingestion tunables.
type IngestConfig struct {
	// MentionParallelism bounds concurrent mention resolution per event.
	MentionParallelism int `yaml:"mention_parallelism" env:"INGEST_MENTION_PARALLELISM" env-default:"4"`
}

// LLMConfig holds collaborator model configuration.
type LLMConfig struct {
	// Provider selects the backing model API: "openai" or "anthropic".
	// Empty disables all collaborators.
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:""`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	// TimeoutSeconds bounds each collaborator call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS" env-default:"30"`

	// MaxRetries bounds retry attempts for transient collaborator failures.
	MaxRetries int `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"3"`

	// Per-collaborator switches. A disabled collaborator degrades to its
	// safe default ("other" theme, tier-3 creation, lineage without prose).
	ThemeExtraction bool `yaml:"theme_extraction" env:"LLM_THEME_EXTRACTION" env-default:"false"`
	Disambiguation  bool `yaml:"disambiguation" env:"LLM_DISAMBIGUATION" env-default:"false"`
	Narrative       bool `yaml:"narrative" env:"LLM_NARRATIVE" env-default:"false"`
}

// Enabled returns true if a provider is configured.
func (c *LLMConfig) Enabled() bool {
	return c.Provider != ""
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. Secrets (PGPASSWORD, LLM_API_KEY) must come from
// environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate rejects tunable combinations the pipeline cannot run with.
func (c *Config) validate() error {
	if c.Resolver.MatchThreshold <= 0 || c.Resolver.MatchThreshold > 1 {
		return fmt.Errorf("resolver.match_threshold must be in (0, 1], got %v", c.Resolver.MatchThreshold)
	}
	if c.Resolver.AmbiguityMargin < 0 {
		return fmt.Errorf("resolver.ambiguity_margin must not be negative, got %v", c.Resolver.AmbiguityMargin)
	}
	if c.Resolver.EscalationMode != EscalationCreate && c.Resolver.EscalationMode != EscalationDisambiguate {
		return fmt.Errorf("resolver.escalation_mode must be %q or %q, got %q",
			EscalationCreate, EscalationDisambiguate, c.Resolver.EscalationMode)
	}
	if c.Graph.MinCooccurrence < 1 {
		return fmt.Errorf("graph.min_cooccurrence must be at least 1, got %d", c.Graph.MinCooccurrence)
	}
	if c.Lineage.EscalationThresholdPct <= 0 {
		return fmt.Errorf("lineage.escalation_threshold_pct must be positive, got %v", c.Lineage.EscalationThresholdPct)
	}
	if c.Ingest.MentionParallelism < 1 {
		return fmt.Errorf("ingest.mention_parallelism must be at least 1, got %d", c.Ingest.MentionParallelism)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string. Loopback hosts
// are remapped when the engine runs containerized against a host database.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
