package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ONTOLOGY_CACHE_BACKEND", "badger")
	t.Setenv("PREASSEMBLY_NAMESPACE_ORDER", "HGNC,FPLX")

	cfg, err := Load(false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CacheBackend != CacheBadger || cfg.MaxRetries != 10 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.NamespaceOrder, []string{"HGNC", "FPLX"}) {
		t.Fatalf("unexpected namespace order %v", cfg.NamespaceOrder)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Manifest:        "manifest.yaml",
			ResourceBackend: ResourcesFile,
			CacheBackend:    CacheFile,
			CacheDir:        "cache",
			DatabaseURL:     "postgres://localhost/biokiwi",
			MaxRetries:      3,
			RabbitMQ:        RabbitMQConfig{Host: "localhost", Port: "5672"},
		}
	}

	tests := []struct {
		name         string
		edit         func(c *Config)
		requireQueue bool
		wantErr      bool
	}{
		{name: "valid", edit: func(c *Config) {}, requireQueue: true},
		{name: "unknown cache backend", edit: func(c *Config) { c.CacheBackend = "redis" }, wantErr: true},
		{name: "s3 cache without bucket", edit: func(c *Config) { c.CacheBackend = CacheS3 }, wantErr: true},
		{name: "s3 cache with bucket", edit: func(c *Config) { c.CacheBackend = CacheS3; c.AWS.Bucket = "ontology" }},
		{name: "badger without dir", edit: func(c *Config) { c.CacheBackend = CacheBadger; c.CacheDir = "" }, wantErr: true},
		{name: "missing manifest", edit: func(c *Config) { c.Manifest = "" }, wantErr: true},
		{name: "queue ignored for cli", edit: func(c *Config) { c.RabbitMQ = RabbitMQConfig{}; c.DatabaseURL = "" }},
		{name: "queue required for worker", edit: func(c *Config) { c.RabbitMQ.Port = "amqp" }, requireQueue: true, wantErr: true},
		{name: "database required for worker", edit: func(c *Config) { c.DatabaseURL = "" }, requireQueue: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.edit(c)
			err := c.Validate(tt.requireQueue)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRabbitMQURL(t *testing.T) {
	c := RabbitMQConfig{User: "guest", Password: "secret", Host: "mq", Port: "5672"}
	if got := c.URL(); got != "amqp://guest:secret@mq:5672/" {
		t.Fatalf("unexpected url %q", got)
	}
}
