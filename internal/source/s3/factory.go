package s3

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"tileserv/internal/source"
	"tileserv/internal/tiles"
)

// NewFactory returns a source.Factory for S3 sources. Credentials come
// from the default AWS chain (environment, shared config, instance
// role).
//
// Params:
//
//	bucket     bucket name (required)
//	prefix     key prefix (default none)
//	ext        object extension, determines the format (default "png")
//	encoding   encoding of the stored objects (default none)
//	region     AWS region (default from environment)
//	endpoint   custom endpoint for S3-compatible stores (default AWS)
//	name, description, attribution, minzoom, maxzoom: metadata fields
func NewFactory() source.Factory {
	return func(id string, params map[string]string, logger *slog.Logger) (source.Source, error) {
		bucket := params["bucket"]
		if bucket == "" {
			return nil, fmt.Errorf("s3 source %q: missing required param \"bucket\"", id)
		}

		var loadOpts []func(*awsconfig.LoadOptions) error
		if region := params["region"]; region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("s3 source %q: load aws config: %w", id, err)
		}

		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if endpoint := params["endpoint"]; endpoint != "" {
				o.BaseEndpoint = &endpoint
				// Path-style addressing for S3-compatible stores (minio etc.).
				o.UsePathStyle = true
			}
		})

		encoding, err := tiles.ParseEncoding(params["encoding"])
		if err != nil {
			return nil, err
		}

		md := &tiles.Metadata{
			Name:        params["name"],
			Description: params["description"],
			Attribution: params["attribution"],
		}
		if md.MinZoom, err = parseZoom(params["minzoom"]); err != nil {
			return nil, err
		}
		if md.MaxZoom, err = parseZoom(params["maxzoom"]); err != nil {
			return nil, err
		}

		return New(Config{
			ID:       id,
			Client:   client,
			Bucket:   bucket,
			Prefix:   params["prefix"],
			Ext:      cmp.Or(params["ext"], "png"),
			Encoding: encoding,
			Metadata: md,
			Logger:   logger,
		})
	}
}

func parseZoom(s string) (*uint8, error) {
	if s == "" {
		return nil, nil
	}
	z, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid zoom %q: %w", s, err)
	}
	v := uint8(z)
	return &v, nil
}
