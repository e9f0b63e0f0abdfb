package config

import (
	"time"

	"github.com/codevakure/lonb/internal/booking"
	"github.com/codevakure/lonb/internal/kb"
	"github.com/codevakure/lonb/internal/providers"
	"github.com/codevakure/lonb/internal/storage"
)

// Config holds lonb configuration.
// Stored at: $HOME/.lonb/config.yaml
type Config struct {
	AWS           AWSCfg           `mapstructure:"aws" yaml:"aws"`
	KnowledgeBase KnowledgeBaseCfg `mapstructure:"knowledge_base" yaml:"knowledge_base"`
	Generation    GenerationCfg    `mapstructure:"generation" yaml:"generation"`
	Storage       StorageCfg       `mapstructure:"storage" yaml:"storage"`
	Bookings      BookingsCfg      `mapstructure:"bookings" yaml:"bookings"`
}

// AWSCfg selects the AWS region and credential profile.
type AWSCfg struct {
	Region  string `mapstructure:"region" yaml:"region"`
	Profile string `mapstructure:"profile" yaml:"profile"` // empty uses the default credential chain
}

// KnowledgeBaseCfg configures retrieval and ingestion.
type KnowledgeBaseCfg struct {
	ID           string        `mapstructure:"id" yaml:"id"`
	DataSourceID string        `mapstructure:"data_source_id" yaml:"data_source_id"`
	MetadataKey  string        `mapstructure:"metadata_key" yaml:"metadata_key"`
	NumResults   int           `mapstructure:"num_results" yaml:"num_results"`
	SyncWait     time.Duration `mapstructure:"sync_wait" yaml:"sync_wait"`
	SyncInterval time.Duration `mapstructure:"sync_interval" yaml:"sync_interval"`
}

// GenerationCfg configures model invocation defaults. Per-request values in
// an extraction request override these.
type GenerationCfg struct {
	ModelID   string `mapstructure:"model_id" yaml:"model_id"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// StorageCfg configures the S3 document store.
type StorageCfg struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// BookingsCfg configures the DynamoDB booking table.
type BookingsCfg struct {
	Table string `mapstructure:"table" yaml:"table"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSCfg{
			Region: "us-east-1",
		},
		KnowledgeBase: KnowledgeBaseCfg{
			MetadataKey:  "loanBookingId",
			NumResults:   kb.DefaultNumResults,
			SyncWait:     kb.DefaultSyncWait,
			SyncInterval: kb.DefaultSyncInterval,
		},
		Generation: GenerationCfg{
			ModelID:   providers.DefaultModelID,
			MaxTokens: providers.DefaultMaxTokens,
		},
		Storage: StorageCfg{
			Bucket: storage.DefaultBucket,
			Prefix: storage.DefaultPrefix,
		},
		Bookings: BookingsCfg{
			Table: booking.DefaultTable,
		},
	}
}
