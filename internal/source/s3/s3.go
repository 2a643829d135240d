// Package s3 provides a tile source that reads pre-rendered tiles from
// an S3-compatible object store, one object per coordinate.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"tileserv/internal/logging"
	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// ObjectGetter is the slice of the S3 API the source needs. The real
// implementation is *s3.Client; tests substitute a fake.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Source reads tiles from <bucket>/<prefix>/<z>/<x>/<y>.<ext>.
type Source struct {
	id       string
	client   ObjectGetter
	bucket   string
	prefix   string
	ext      string
	metadata *tiles.Metadata
	info     tiles.Info
	logger   *slog.Logger
}

var _ source.Source = (*Source)(nil)

// Config holds S3 source configuration.
type Config struct {
	// ID is the source identifier.
	ID string

	// Client performs object reads (required).
	Client ObjectGetter

	// Bucket is the bucket name (required).
	Bucket string

	// Prefix is the key prefix in front of the z/x/y path. May be empty.
	Prefix string

	// Ext is the object key extension without the dot; it determines
	// the source format.
	Ext string

	// Encoding of the stored objects, if pre-compressed.
	Encoding tiles.Encoding

	// Metadata is the source's descriptive document. May be nil.
	Metadata *tiles.Metadata

	// Logger for structured logging.
	Logger *slog.Logger
}

// New creates an S3 source. No I/O happens here; the first object read
// is the first tile request.
func New(cfg Config) (*Source, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 source %q: missing client", cfg.ID)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 source %q: missing bucket", cfg.ID)
	}
	format, err := tiles.ParseFormat(cfg.Ext)
	if err != nil {
		return nil, fmt.Errorf("s3 source %q: %w", cfg.ID, err)
	}

	return &Source{
		id:       cfg.ID,
		client:   cfg.Client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		ext:      cfg.Ext,
		metadata: cfg.Metadata,
		info:     tiles.Info{Format: format, Encoding: cfg.Encoding},
		logger:   logging.Source(cfg.Logger, "s3", cfg.ID),
	}, nil
}

func (s *Source) ID() string                { return s.id }
func (s *Source) Metadata() *tiles.Metadata { return s.metadata }
func (s *Source) TileInfo() tiles.Info      { return s.info }
func (s *Source) SupportsQuery() bool       { return false }

// Clone returns a source sharing the S3 client; the client is
// goroutine-safe and holds the connection pool.
func (s *Source) Clone() source.Source {
	cp := *s
	cp.metadata = s.metadata.Clone()
	return &cp
}

// Tile reads the object for coord. A missing key returns empty bytes.
func (s *Source) Tile(ctx context.Context, coord tiles.Coord, _ url.Values) ([]byte, error) {
	key := coord.Path() + "." + s.ext
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tile %s from s3://%s/%s: %w", coord, s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read tile body %s: %w", coord, err)
	}
	return data, nil
}
