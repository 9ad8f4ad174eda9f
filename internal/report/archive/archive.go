// Package archive stores finished report bundles in S3. A bundle is every
// format of one report generated together, keyed as
// <prefix>/<analysis-id>/<timestamp>/<file>.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/autogt/autogt/pkg/logger"
)

// uploadConcurrency bounds parallel PutObject calls per bundle.
const uploadConcurrency = 4

// timestampLayout names bundles sortably, newest last lexicographically.
const timestampLayout = "20060102T150405Z"

// File is one report rendition inside a bundle.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Store uploads and retrieves report bundles.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger logger.Logger
	now    func() time.Time
}

// Option adjusts a Store.
type Option func(*Store)

// WithClient injects a preconfigured S3 client, used by tests to point the
// store at LocalStack.
func WithClient(client *s3.Client) Option {
	return func(s *Store) { s.client = client }
}

// withClock overrides bundle timestamping in tests.
func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store for a bucket. Without an injected client the
// standard AWS config chain (environment, shared config, instance role)
// supplies credentials and region.
func New(ctx context.Context, bucket, prefix string, log logger.Logger, opts ...Option) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	if prefix == "" {
		return nil, fmt.Errorf("archive prefix is required")
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	s := &Store{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
	}
	return s, nil
}

// Upload stores a bundle under a fresh timestamped prefix, uploading files
// concurrently. It returns the bundle prefix. A failed file fails the
// whole upload; already stored siblings are left for the next overwrite.
func (s *Store) Upload(ctx context.Context, analysisID string, files []File) (string, error) {
	if analysisID == "" {
		return "", fmt.Errorf("analysis ID is required")
	}
	if len(files) == 0 {
		return "", fmt.Errorf("bundle for analysis %s has no files", analysisID)
	}

	bundle := path.Join(s.prefix, analysisID, s.now().UTC().Format(timestampLayout))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for _, f := range files {
		g.Go(func() error {
			key := path.Join(bundle, f.Name)
			input := &s3.PutObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
				Body:   bytes.NewReader(f.Body),
			}
			if f.ContentType != "" {
				input.ContentType = aws.String(f.ContentType)
			}
			if _, err := s.client.PutObject(ctx, input); err != nil {
				return fmt.Errorf("uploading %s: %w", key, err)
			}
			s.logger.Debug("Archived report file", "key", key, "bytes", len(f.Body))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	s.logger.Info("Report bundle archived",
		"analysis_id", analysisID,
		"bundle", bundle,
		"files", len(files),
	)
	return bundle, nil
}

// List returns the bundle prefixes stored for an analysis, newest first.
func (s *Store) List(ctx context.Context, analysisID string) ([]string, error) {
	if analysisID == "" {
		return nil, fmt.Errorf("analysis ID is required")
	}

	prefix := path.Join(s.prefix, analysisID) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var bundles []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing bundles for analysis %s: %w", analysisID, err)
		}
		for _, cp := range page.CommonPrefixes {
			if cp.Prefix == nil {
				continue
			}
			bundles = append(bundles, strings.TrimSuffix(*cp.Prefix, "/"))
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(bundles)))
	return bundles, nil
}

// Files returns the object keys inside one bundle, sorted.
func (s *Store) Files(ctx context.Context, bundle string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(strings.TrimSuffix(bundle, "/") + "/"),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing bundle %s: %w", bundle, err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// Download fetches one archived object.
func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// ContentTypeFor maps a report file name to its MIME type, defaulting to
// octet-stream.
func ContentTypeFor(name string) string {
	switch strings.TrimPrefix(path.Ext(name), ".") {
	case "json":
		return "application/json"
	case "yaml", "yml":
		return "application/yaml"
	case "csv":
		return "text/csv"
	case "md", "markdown":
		return "text/markdown"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
