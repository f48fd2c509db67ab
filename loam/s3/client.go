package s3

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pithecene-io/loam/loam"
)

// NewClient builds an S3 client from the adapter configuration's
// transport fields (endpoint override, scheme, region, TLS verification).
//
// Credentials are resolved by the SDK's default chain; pass additional
// load options (for example config.WithCredentialsProvider for static
// keys against LocalStack or MinIO) through optFns.
//
// Example:
//
//	client, err := s3.NewClient(ctx, cfg,
//		config.WithCredentialsProvider(
//			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
//		),
//	)
func NewClient(ctx context.Context, cfg loam.Config, optFns ...func(*config.LoadOptions) error) (*s3.Client, error) {
	loadOpts := make([]func(*config.LoadOptions) error, 0, len(optFns)+2)
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if !cfg.VerifySSL {
		loadOpts = append(loadOpts, config.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // verify_ssl=false is an explicit opt-out for test endpoints
			},
		}))
	}
	loadOpts = append(loadOpts, optFns...)

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// Custom endpoints (LocalStack, MinIO) need path-style
			// addressing; virtual-host style requires DNS per bucket.
			o.BaseEndpoint = aws.String(endpointURL(cfg))
			o.UsePathStyle = true
		}
	})
	return client, nil
}

// endpointURL joins the scheme and endpoint override. An endpoint that
// already carries a scheme is used as-is.
func endpointURL(cfg loam.Config) string {
	if strings.Contains(cfg.Endpoint, "://") {
		return cfg.Endpoint
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}
