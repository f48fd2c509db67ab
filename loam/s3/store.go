// Package s3 provides an S3-compatible transport for loam.
//
// This adapter supports AWS S3, MinIO, LocalStack, Cloudflare R2,
// and other S3-compatible object stores.
//
// # Semantics
//
//   - PutObject and CompleteMultipartUpload replace any existing object:
//     a flushed file is immutable, and a later write/flush cycle on the
//     same URI produces a new version of the object.
//   - GetRange issues true HTTP Range reads.
//   - HeadObject maps missing keys to loam.ErrNotFound.
//   - No retries are performed here; configure retry policy on the SDK
//     client if needed.
//
// # Consistency
//
// AWS S3 provides strong read-after-write consistency (since Dec 2020).
// Other S3-compatible backends may differ — consult their documentation.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pithecene-io/loam/loam"
)

// API defines the subset of the S3 client interface used by the store.
// This enables testing with mock implementations.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Config holds configuration for the S3 store.
type Config struct {
	// Bucket is the S3 bucket name. Required.
	Bucket string

	// Prefix is an optional key prefix for all operations.
	// If set, all keys are prefixed with this value (with a trailing slash added if missing).
	Prefix string
}

// Store implements loam.Store using an S3-compatible backend.
type Store struct {
	client API
	bucket string
	prefix string
}

// New creates a new S3 store with the given client and configuration.
//
// The client must be pre-configured with credentials, region, and endpoint.
// Use NewClient, or github.com/aws/aws-sdk-go-v2/config directly.
func New(client API, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("s3: client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// key maps a loam URI to the full object key.
func (s *Store) key(uri string) (string, error) {
	uri = strings.TrimPrefix(uri, "/")
	if uri == "" {
		return "", errors.New("s3: uri must not be empty")
	}
	return s.prefix + uri, nil
}

// PutObject implements loam.Store. Existing objects are replaced.
func (s *Store) PutObject(ctx context.Context, uri string, data []byte) error {
	fullKey, err := s.key(uri)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	return nil
}

// InitiateMultipart implements loam.Store.
func (s *Store) InitiateMultipart(ctx context.Context, uri string) (string, error) {
	fullKey, err := s.key(uri)
	if err != nil {
		return "", err
	}

	out, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return "", fmt.Errorf("s3: create multipart upload: %w", err)
	}
	return aws.ToString(out.UploadId), nil
}

// UploadPart implements loam.Store. The returned part identifier is the
// part's ETag, as required by CompleteMultipartUpload.
func (s *Store) UploadPart(ctx context.Context, uri, uploadID string, number int32, data []byte) (string, error) {
	fullKey, err := s.key(uri)
	if err != nil {
		return "", err
	}

	out, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(fullKey),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(number),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("s3: upload part %d: %w", number, err)
	}
	return aws.ToString(out.ETag), nil
}

// CompleteMultipart implements loam.Store. Parts must be listed in index
// order.
func (s *Store) CompleteMultipart(ctx context.Context, uri, uploadID string, parts []loam.CompletedPart) error {
	fullKey, err := s.key(uri)
	if err != nil {
		return err
	}

	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			PartNumber: aws.Int32(p.Number),
			ETag:       aws.String(p.ID),
		}
	}

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(fullKey),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return fmt.Errorf("s3: complete multipart upload: %w", err)
	}
	return nil
}

// AbortMultipart implements loam.Store.
func (s *Store) AbortMultipart(ctx context.Context, uri, uploadID string) error {
	fullKey, err := s.key(uri)
	if err != nil {
		return err
	}

	_, err = s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(fullKey),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return fmt.Errorf("s3: abort multipart upload: %w", err)
	}
	return nil
}

// GetRange implements loam.Store via an HTTP Range read.
func (s *Store) GetRange(ctx context.Context, uri string, offset, length int64) ([]byte, error) {
	fullKey, err := s.key(uri)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, loam.ErrInvalidRange
	}
	if length == 0 {
		return []byte{}, nil
	}

	// S3 Range header format: "bytes=start-end" (inclusive).
	rangeHeader := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, loam.ErrNotFound
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange" {
			return nil, loam.ErrInvalidRange
		}
		return nil, fmt.Errorf("s3: range read: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: reading range body: %w", err)
	}
	return data, nil
}

// HeadObject implements loam.Store.
func (s *Store) HeadObject(ctx context.Context, uri string) (int64, error) {
	fullKey, err := s.key(uri)
	if err != nil {
		return 0, err
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, loam.ErrNotFound
		}
		return 0, fmt.Errorf("s3: head object: %w", err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// DeleteObject implements loam.Store.
// Safe to call on missing URIs (S3 DeleteObject is idempotent).
func (s *Store) DeleteObject(ctx context.Context, uri string) error {
	fullKey, err := s.key(uri)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return fmt.Errorf("s3: delete object: %w", err)
	}
	return nil
}

// List implements loam.Store. Pagination is handled automatically; all
// matching URIs are returned with the store prefix stripped.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.prefix + strings.TrimPrefix(prefix, "/")

	var uris []string
	var continuationToken *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(fullPrefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("s3: list objects: %w", err)
		}

		for _, obj := range out.Contents {
			if obj.Key != nil {
				uris = append(uris, strings.TrimPrefix(*obj.Key, s.prefix))
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}

	return uris, nil
}

// -----------------------------------------------------------------------------
// Bucket fixture operations
// -----------------------------------------------------------------------------

// CreateBucket creates the store's bucket.
func (s *Store) CreateBucket(ctx context.Context) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3: create bucket: %w", err)
	}
	return nil
}

// RemoveBucket deletes the store's bucket. The bucket must be empty.
func (s *Store) RemoveBucket(ctx context.Context) error {
	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3: delete bucket: %w", err)
	}
	return nil
}

// IsBucket reports whether the store's bucket exists.
func (s *Store) IsBucket(ctx context.Context) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3: head bucket: %w", err)
	}
	return true, nil
}

// IsEmptyBucket reports whether the store's bucket holds no objects
// under the configured prefix.
func (s *Store) IsEmptyBucket(ctx context.Context) (bool, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("s3: list objects: %w", err)
	}
	return len(out.Contents) == 0, nil
}

// EmptyBucket deletes every object under the configured prefix.
func (s *Store) EmptyBucket(ctx context.Context) error {
	uris, err := s.List(ctx, "")
	if err != nil {
		return err
	}
	for _, uri := range uris {
		if err := s.DeleteObject(ctx, uri); err != nil {
			return err
		}
	}
	return nil
}

// isNotFound checks if an error indicates the object or bucket was not found.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "NoSuchBucket" || code == "404"
	}
	return false
}
