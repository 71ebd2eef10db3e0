// Package source reads document text for analysis from local files or
// Cloud Storage objects.
package source

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/logger"
)

// DefaultMaxBytes caps how much text one document may carry.
const DefaultMaxBytes = 10 << 20

// Source fetches document text by URI. gs:// URIs go through Objects; any
// other URI is a local path.
type Source struct {
	Objects  ObjectStore
	MaxBytes int
}

// New returns a Source. objects may be nil when only local files are read.
func New(objects ObjectStore) *Source {
	return &Source{Objects: objects, MaxBytes: DefaultMaxBytes}
}

// Fetch returns the text at uri. Empty or whitespace-only text and invalid
// UTF-8 wrap domain.ErrContentExtraction.
func (s *Source) Fetch(ctx context.Context, uri string) (string, error) {
	log := logger.FromContext(ctx)

	data, err := s.read(ctx, uri)
	if err != nil {
		return "", err
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if len(data) > limit {
		return "", fmt.Errorf("Fetch: %s is %d bytes, limit is %d: %w", uri, len(data), limit, domain.ErrContentExtraction)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("Fetch: %s is not UTF-8 text: %w", uri, domain.ErrContentExtraction)
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Fetch: %s has no text: %w", uri, domain.ErrContentExtraction)
	}

	log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("Fetched document")
	return text, nil
}

func (s *Source) read(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "gs://") {
		if s.Objects == nil {
			return nil, fmt.Errorf("Fetch: no object store configured for %s", uri)
		}
		bucket, object, err := ParseGCSURI(uri)
		if err != nil {
			return nil, fmt.Errorf("Fetch: %w", err)
		}
		data, err := s.Objects.Read(ctx, bucket, object)
		if err != nil {
			return nil, fmt.Errorf("Fetch: %w", err)
		}
		return data, nil
	}

	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}
	return data, nil
}
