// Package config assembles the worker and CLI settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/biokiwi/backend/internal/util"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"

	"github.com/go-playground/validator"
)

const (
	CacheNone   = "none"
	CacheFile   = "file"
	CacheS3     = "s3"
	CacheBadger = "badger"

	ResourcesFile = "file"
	ResourcesS3   = "s3"
)

type AWSConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// Enabled reports whether an S3 bucket is configured.
func (c AWSConfig) Enabled() bool {
	return c.Bucket != ""
}

type RabbitMQConfig struct {
	User     string
	Password string
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
}

// URL returns the AMQP connection URL.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Password, c.Host, c.Port)
}

type Config struct {
	Debug bool

	Manifest         string `validate:"required"`
	ResourceBackend  string `validate:"oneof=file s3"`
	ResourceDir      string
	ResourcePrefix   string
	CacheBackend     string `validate:"oneof=none file s3 badger"`
	CacheDir         string
	CachePrefix      string
	BuildParallel    int `validate:"min=0"`
	PreserveXrefDirs bool

	DatabaseURL    string
	MigrationsPath string
	LockTTL        time.Duration `validate:"min=0"`

	AWS      AWSConfig
	RabbitMQ RabbitMQConfig

	Workers        int `validate:"min=0"`
	NamespaceOrder []string
	Standardize    bool
	MaxRetries     int `validate:"min=1"`
	MetricsAddr    string
}

// Load reads the configuration from the environment and validates it.
// RabbitMQ settings are only checked when requireQueue is set.
func Load(requireQueue bool) (*Config, error) {
	cfg := &Config{
		Debug: util.GetEnvBool("DEBUG", false),

		Manifest:         util.GetEnvString("ONTOLOGY_MANIFEST", "resources/manifest.yaml"),
		ResourceBackend:  util.GetEnvString("ONTOLOGY_RESOURCES", ResourcesFile),
		ResourceDir:      util.GetEnvString("ONTOLOGY_RESOURCE_DIR", "resources"),
		ResourcePrefix:   util.GetEnv("ONTOLOGY_RESOURCE_PREFIX"),
		CacheBackend:     util.GetEnvString("ONTOLOGY_CACHE_BACKEND", CacheFile),
		CacheDir:         util.GetEnvString("ONTOLOGY_CACHE_DIR", ".cache/ontology"),
		CachePrefix:      util.GetEnvString("ONTOLOGY_CACHE_PREFIX", "cache"),
		BuildParallel:    util.GetEnvInt("ONTOLOGY_BUILD_PARALLEL", 4),
		PreserveXrefDirs: util.GetEnvBool("ONTOLOGY_PRESERVE_XREF_DIRECTION", false),

		DatabaseURL:    util.GetEnv("DATABASE_URL"),
		MigrationsPath: util.GetEnvString("MIGRATIONS_PATH", "file://migrations"),
		LockTTL:        util.GetEnvDuration("ONTOLOGY_LOCK_TTL", 2*time.Minute),

		AWS: AWSConfig{
			Region:    util.GetEnv("AWS_REGION"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			Bucket:    util.GetEnv("AWS_BUCKET"),
		},
		RabbitMQ: RabbitMQConfig{
			User:     util.GetEnv("RABBITMQ_USER"),
			Password: util.GetEnv("RABBITMQ_PASSWORD"),
			Host:     util.GetEnv("RABBITMQ_HOST"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		},

		Workers:        util.GetEnvInt("PREASSEMBLY_WORKERS", 0),
		NamespaceOrder: util.GetEnvList("PREASSEMBLY_NAMESPACE_ORDER", common.DefaultNamespaceOrder),
		Standardize:    util.GetEnvBool("PREASSEMBLY_STANDARDIZE", false),
		MaxRetries:     util.GetEnvInt("PREASSEMBLY_MAX_RETRIES", 10),
		MetricsAddr:    util.GetEnvString("METRICS_ADDR", ":9090"),
	}

	if err := cfg.Validate(requireQueue); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the settings that depend on each other.
func (c *Config) Validate(requireQueue bool) error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var invalid validator.ValidationErrors
		if !requireQueue && errors.As(err, &invalid) {
			err = dropNamespace(invalid, "Config.RabbitMQ.")
		}
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	if c.CacheBackend == CacheS3 && !c.AWS.Enabled() {
		return errors.New("invalid configuration: s3 cache requires AWS_BUCKET")
	}
	if c.ResourceBackend == ResourcesS3 && !c.AWS.Enabled() {
		return errors.New("invalid configuration: s3 resources require AWS_BUCKET")
	}
	if (c.CacheBackend == CacheFile || c.CacheBackend == CacheBadger) && c.CacheDir == "" {
		return fmt.Errorf("invalid configuration: %s cache requires ONTOLOGY_CACHE_DIR", c.CacheBackend)
	}
	if requireQueue && c.DatabaseURL == "" {
		return errors.New("invalid configuration: DATABASE_URL is required")
	}
	return nil
}

func dropNamespace(errs validator.ValidationErrors, prefix string) error {
	var kept validator.ValidationErrors
	for _, fe := range errs {
		if strings.HasPrefix(fe.Namespace(), prefix) {
			continue
		}
		kept = append(kept, fe)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
