package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

const (
	defaultMediaURLTTL = 15 * time.Minute
	maxMediaURLTTL     = time.Hour
)

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
	errNoSigner      = errors.New("storage: signer is required")
)

// MediaResolver turns stored catalog image references into URLs clients can fetch.
// References that are already absolute http(s) URLs pass through untouched;
// bucket object paths are converted into V4 signed download URLs.
type MediaResolver struct {
	signer Signer
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// MediaResolverOption customises resolver behaviour.
type MediaResolverOption func(*MediaResolver)

// WithURLTTL overrides the signed URL lifetime.
func WithURLTTL(ttl time.Duration) MediaResolverOption {
	return func(r *MediaResolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) MediaResolverOption {
	return func(r *MediaResolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewMediaResolver constructs a MediaResolver for the given media bucket.
func NewMediaResolver(signer Signer, bucket string, opts ...MediaResolverOption) (*MediaResolver, error) {
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errNoSigner
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}

	resolver := &MediaResolver{
		signer: signer,
		bucket: bucket,
		ttl:    defaultMediaURLTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(resolver)
		}
	}
	if resolver.ttl > maxMediaURLTTL {
		resolver.ttl = maxMediaURLTTL
	}
	return resolver, nil
}

// ResolveURL returns a fetchable URL for the stored image reference.
func (r *MediaResolver) ResolveURL(ctx context.Context, ref string) (string, error) {
	if r == nil {
		return "", errNoSigner
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errInvalidObject
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}

	object, err := normaliseObjectPath(ref)
	if err != nil {
		return "", err
	}

	opts := &storage.SignedURLOptions{
		GoogleAccessID: r.signer.Email(),
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        r.now().Add(r.ttl),
		SignBytes: func(payload []byte) ([]byte, error) {
			return r.signer.SignBytes(ctx, payload)
		},
	}

	signedURL, err := storage.SignedURL(r.bucket, object, opts)
	if err != nil {
		return "", fmt.Errorf("storage: sign media url: %w", err)
	}
	return signedURL, nil
}

func normaliseObjectPath(ref string) (string, error) {
	object := strings.TrimPrefix(ref, "/")
	if object == "" {
		return "", errInvalidObject
	}
	if strings.Contains(object, "..") || strings.Contains(object, "\\") {
		return "", fmt.Errorf("storage: object path %q contains invalid characters", ref)
	}
	return object, nil
}
