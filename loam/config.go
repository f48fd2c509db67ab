package loam

import (
	"fmt"
	"io"
	"runtime"

	jsoniter "github.com/json-iterator/go"
)

var jsonConfig = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds immutable per-adapter parameters.
//
// The transport fields (Endpoint, Scheme, Region, VerifySSL) are not
// interpreted by the core; they are passed through to store constructors
// such as s3.NewClient unmodified.
type Config struct {
	// MaxParallelOps caps the number of part uploads in flight across all
	// URIs of the adapter instance.
	MaxParallelOps int `json:"max_parallel_ops"`

	// PartSize is the buffered byte threshold that triggers a part upload
	// when multipart is enabled, and the hard ceiling on a single object
	// when it is disabled.
	PartSize int64 `json:"multipart_part_size"`

	// UseMultipart selects the upload strategy. When false, a URI's
	// buffered bytes may never exceed PartSize and the object is written
	// with a single PUT on flush.
	UseMultipart bool `json:"use_multipart_upload"`

	// Endpoint overrides the store endpoint (host[:port] or full URL).
	Endpoint string `json:"endpoint_override"`

	// Scheme is used when Endpoint carries no scheme ("http" or "https").
	Scheme string `json:"scheme"`

	// Region is the store region.
	Region string `json:"region"`

	// VerifySSL controls TLS certificate verification on the transport.
	VerifySSL bool `json:"verify_ssl"`
}

// DefaultConfig returns the default adapter configuration: multipart
// enabled with 5 MiB parts and one upload slot per CPU.
func DefaultConfig() Config {
	return Config{
		MaxParallelOps: runtime.NumCPU(),
		PartSize:       5 * 1024 * 1024,
		UseMultipart:   true,
		Scheme:         "https",
		Region:         "us-east-1",
		VerifySSL:      true,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MaxParallelOps <= 0 {
		return fmt.Errorf("loam: max_parallel_ops must be positive, got %d", c.MaxParallelOps)
	}
	if c.PartSize <= 0 {
		return fmt.Errorf("loam: multipart_part_size must be positive, got %d", c.PartSize)
	}
	return nil
}

// LoadConfig reads a JSON configuration document.
//
// Keys absent from the document keep their DefaultConfig values; unknown
// keys are ignored.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := jsonConfig.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("loam: failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
