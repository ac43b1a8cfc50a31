package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/ifuryst/feedsync/pkg/logger"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Mapper   MapperConfig   `yaml:"mapper"`
	Resolver ResolverConfig `yaml:"resolver"`
	Sync     SyncConfig     `yaml:"sync"`
	Secrets  SecretsConfig  `yaml:"secrets"`
	Logger   logger.Config  `yaml:"logger"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Database  string `yaml:"database"`
	ParseTime bool   `yaml:"parse_time"`
	TimeZone  string `yaml:"timezone"`

	// MaxOpenConns bounds the shared pool reused across batches.
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// MapperConfig points at the SurrealDB instance backing the identifier map.
type MapperConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Table     string `yaml:"table"`
}

// ResolverConfig configures the parser-service client used for URL metadata.
type ResolverConfig struct {
	BaseURL     string `yaml:"base_url"`
	Timeout     string `yaml:"timeout"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// SyncConfig carries the engine-level knobs: which surfaces are live, who the
// audit trail blames for automated deletes, and how syndicated URLs are
// recognized.
type SyncConfig struct {
	AllowedSurfaces    []string `yaml:"allowed_surfaces"`
	DeletedByUserID    int64    `yaml:"deleted_by_user_id"`
	SyndicationHost    string   `yaml:"syndication_host"`
	SyndicatedPrefix   string   `yaml:"syndicated_prefix"`
	BackfillBatchSize  int      `yaml:"backfill_batch_size"`
	MapperAnomalyLimit int      `yaml:"mapper_anomaly_limit"`
}

type SecretsConfig struct {
	Path string `yaml:"path"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5335
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 3306
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = "curated_feed_legacy"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Mapper.URL == "" {
		cfg.Mapper.URL = "ws://localhost:8000/rpc"
	}
	if cfg.Mapper.Namespace == "" {
		cfg.Mapper.Namespace = "feedsync"
	}
	if cfg.Mapper.Database == "" {
		cfg.Mapper.Database = "idmap"
	}
	if cfg.Mapper.Table == "" {
		cfg.Mapper.Table = "curated_item_mapping"
	}
	if cfg.Resolver.Timeout == "" {
		cfg.Resolver.Timeout = "30s"
	}
	if cfg.Resolver.MaxAttempts == 0 {
		cfg.Resolver.MaxAttempts = 3
	}
	if cfg.Sync.DeletedByUserID == 0 {
		cfg.Sync.DeletedByUserID = 21
	}
	if cfg.Sync.SyndicationHost == "" {
		cfg.Sync.SyndicationHost = "reader.example.com"
	}
	if cfg.Sync.SyndicatedPrefix == "" {
		cfg.Sync.SyndicatedPrefix = "/syndicated/"
	}
	if cfg.Sync.BackfillBatchSize == 0 {
		cfg.Sync.BackfillBatchSize = 10
	}
	if cfg.Sync.MapperAnomalyLimit == 0 {
		cfg.Sync.MapperAnomalyLimit = 100
	}

	return cfg, nil
}
