package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/JonMunkholm/rfid-ingest/internal/ingest"
)

// errBodyTooLarge is returned when decompressed input exceeds the body limit.
var errBodyTooLarge = errors.New("web: request body too large after decompression")

// decompress wraps r for the given content encoding. An empty encoding or
// "identity" returns r unchanged.
func decompress(encoding string, r io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(r), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", errUnsupportedFile, err)
		}
		return zr, nil
	case "zstd":
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", errUnsupportedFile, err)
		}
		return dec.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("%w: content encoding %q", errUnsupportedFile, encoding)
	}
}

// encodingFromName maps a compressed file suffix to its content encoding
// and returns the name without it.
func encodingFromName(filename string) (encoding, inner string) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gz":
		return "gzip", strings.TrimSuffix(filename, filepath.Ext(filename))
	case ".zst":
		return "zstd", strings.TrimSuffix(filename, filepath.Ext(filename))
	default:
		return "", filename
	}
}

// readCapped decodes r with encoding and reads at most limit bytes of the
// result.
func readCapped(r io.Reader, encoding string, limit int64) ([]byte, error) {
	rc, err := decompress(encoding, r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(rc, limit+1))
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, fmt.Errorf("web: read body: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ingest.ErrMalformedBody, err)
	}
	if n > limit {
		return nil, errBodyTooLarge
	}
	return buf.Bytes(), nil
}
