package loam

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if !cfg.UseMultipart {
		t.Error("multipart should be enabled by default")
	}
	if cfg.PartSize != 5*1024*1024 {
		t.Errorf("PartSize = %d, want 5 MiB", cfg.PartSize)
	}
	if cfg.MaxParallelOps <= 0 {
		t.Errorf("MaxParallelOps = %d, want positive", cfg.MaxParallelOps)
	}
	if !cfg.VerifySSL {
		t.Error("TLS verification should be on by default")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{MaxParallelOps: 1, PartSize: 1}, false},
		{"zero parallel ops", Config{MaxParallelOps: 0, PartSize: 1}, true},
		{"negative parallel ops", Config{MaxParallelOps: -1, PartSize: 1}, true},
		{"zero part size", Config{MaxParallelOps: 1, PartSize: 0}, true},
		{"negative part size", Config{MaxParallelOps: 1, PartSize: -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	doc := `{
		"max_parallel_ops": 2,
		"multipart_part_size": 10000000,
		"use_multipart_upload": false,
		"endpoint_override": "localhost:9999",
		"scheme": "https",
		"verify_ssl": false
	}`

	cfg, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MaxParallelOps != 2 {
		t.Errorf("MaxParallelOps = %d, want 2", cfg.MaxParallelOps)
	}
	if cfg.PartSize != 10_000_000 {
		t.Errorf("PartSize = %d, want 10000000", cfg.PartSize)
	}
	if cfg.UseMultipart {
		t.Error("UseMultipart should be false")
	}
	if cfg.Endpoint != "localhost:9999" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.VerifySSL {
		t.Error("VerifySSL should be false")
	}
	// Keys absent from the document keep their defaults.
	if cfg.Region != DefaultConfig().Region {
		t.Errorf("Region = %q, want default %q", cfg.Region, DefaultConfig().Region)
	}
}

func TestLoadConfig_AbsentKeysKeepDefaults(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`{"unknown_key": true}`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadConfig({}) = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `{"max_parallel_ops": `},
		{"invalid value", `{"multipart_part_size": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
