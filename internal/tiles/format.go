package tiles

import "fmt"

// Format is the enumerated tile payload encoding.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatMVT
	FormatPNG
	FormatJPEG
	FormatWebP
	FormatGIF
	FormatJSON
)

// ContentType returns the media type served for tiles of this format.
func (f Format) ContentType() string {
	switch f {
	case FormatMVT:
		return "application/x-protobuf"
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	case FormatGIF:
		return "image/gif"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// String returns the short format name as used in configuration and
// mbtiles metadata.
func (f Format) String() string {
	switch f {
	case FormatMVT:
		return "mvt"
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatWebP:
		return "webp"
	case FormatGIF:
		return "gif"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat maps a configuration or metadata token to a Format.
// Accepts the common aliases ("pbf" for vector tiles, "jpg" for jpeg).
func ParseFormat(s string) (Format, error) {
	switch s {
	case "mvt", "pbf":
		return FormatMVT, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "gif":
		return FormatGIF, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown tile format %q", s)
	}
}

// Encoding is the compression applied to tile payloads, if any.
type Encoding uint8

const (
	EncodingNone Encoding = iota
	EncodingGzip
	EncodingZlib
	EncodingBrotli
	EncodingZstd
)

// ContentEncoding returns the HTTP Content-Encoding token for this
// encoding, or "" when tiles are served uncompressed.
func (e Encoding) ContentEncoding() string {
	switch e {
	case EncodingGzip:
		return "gzip"
	case EncodingZlib:
		return "deflate"
	case EncodingBrotli:
		return "br"
	case EncodingZstd:
		return "zstd"
	default:
		return ""
	}
}

// String returns the short encoding name as used in configuration.
func (e Encoding) String() string {
	switch e {
	case EncodingGzip:
		return "gzip"
	case EncodingZlib:
		return "zlib"
	case EncodingBrotli:
		return "brotli"
	case EncodingZstd:
		return "zstd"
	default:
		return "none"
	}
}

// ParseEncoding maps a configuration or metadata token to an Encoding.
// The empty string and "none" both mean uncompressed.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "none":
		return EncodingNone, nil
	case "gzip":
		return EncodingGzip, nil
	case "zlib", "deflate":
		return EncodingZlib, nil
	case "brotli", "br":
		return EncodingBrotli, nil
	case "zstd":
		return EncodingZstd, nil
	default:
		return EncodingNone, fmt.Errorf("unknown tile encoding %q", s)
	}
}

// Info describes a source's output: what the bytes are and how they are
// compressed. Two sources can be combined in one response only when their
// Info values are equal.
type Info struct {
	Format   Format
	Encoding Encoding
}

// String renders the descriptor for diagnostics, e.g. "mvt; encoding=gzip".
func (i Info) String() string {
	if i.Encoding == EncodingNone {
		return i.Format.String()
	}
	return i.Format.String() + "; encoding=" + i.Encoding.String()
}
