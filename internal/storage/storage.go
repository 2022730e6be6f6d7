// Package storage issues short-lived signed URLs against the GCS bucket
// that holds listing and avatar images. The database only ever stores
// object keys; URLs are minted per request and expire on their own.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/ToySwap/TS-Backend/internal/slug"
	"github.com/google/uuid"
)

const (
	ReadTTL  = 15 * time.Minute
	WriteTTL = 5 * time.Minute
)

// ErrNotConfigured is returned by every operation on a Service that was
// built without a bucket. Startup never fails on missing storage config;
// the error shows up on first use instead.
var ErrNotConfigured = errors.New("storage: GCS_BUCKET not configured")

// urlSigner is what we need from *gcs.BucketHandle. Tests swap in a fake.
type urlSigner interface {
	SignedURL(object string, opts *gcs.SignedURLOptions) (string, error)
}

// Service signs read and write URLs for one bucket. The zero value (and any
// Service built without a bucket) is the inert placeholder: every call
// returns ErrNotConfigured.
type Service struct {
	signer     urlSigner
	bucket     string
	publicBase string
}

var (
	sharedMu sync.Mutex
	shared   *Service
)

// Shared returns the process-wide Service, building it on first use.
// A failed build is returned but NOT cached, so a later call after fixing
// credentials can still succeed. A missing bucket is not a failure: it
// yields the inert placeholder, which is cached.
func Shared(ctx context.Context) (*Service, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}

	svc, err := New(ctx)
	if err != nil {
		return nil, err
	}
	shared = svc
	return svc, nil
}

// openBucket dials GCS and returns a signer for one bucket. Tests swap it
// out to avoid the network.
var openBucket = func(ctx context.Context, bucket string) (urlSigner, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return client.Bucket(bucket), nil
}

// New builds a Service from GCS_BUCKET and GCS_PUBLIC_BASE_URL. Credentials
// come from Application Default Credentials. When GCS_BUCKET is unset the
// returned Service is the inert placeholder and err is nil.
func New(ctx context.Context) (*Service, error) {
	bucket := os.Getenv("GCS_BUCKET")
	if bucket == "" {
		log.Println("GCS_BUCKET not set; image URLs disabled")
		return &Service{}, nil
	}

	// The client outlives whichever request builds it first; its token
	// source must not inherit that request's cancellation.
	signer, err := openBucket(context.WithoutCancel(ctx), bucket)
	if err != nil {
		return nil, err
	}

	return &Service{
		signer:     signer,
		bucket:     bucket,
		publicBase: strings.TrimRight(os.Getenv("GCS_PUBLIC_BASE_URL"), "/"),
	}, nil
}

// Configured reports whether the service has a real bucket behind it.
func (s *Service) Configured() bool {
	return s != nil && s.signer != nil
}

// Grant is a read-capable signed URL for one object key.
type Grant struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadGrant is a write-capable signed URL plus the generated key the
// caller should persist once the upload succeeds.
type UploadGrant struct {
	Key       string    `json:"key"`
	URL       string    `json:"upload_url"`
	PublicURL string    `json:"public_url,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignRead mints a 15-minute GET URL for an existing object key.
func (s *Service) SignRead(ctx context.Context, key string) (Grant, error) {
	if !s.Configured() {
		return Grant{}, ErrNotConfigured
	}

	expires := time.Now().Add(ReadTTL)
	url, err := s.signer.SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: expires,
	})
	if err != nil {
		return Grant{}, fmt.Errorf("signing read URL for %q: %w", key, err)
	}

	return Grant{Key: key, URL: url, ExpiresAt: expires}, nil
}

// SignWrite mints a 5-minute PUT URL scoped to a freshly generated key and
// the given content type. baseName, when present, becomes a slug prefix on
// the key so bucket listings stay human-readable.
func (s *Service) SignWrite(ctx context.Context, contentType, baseName string) (UploadGrant, error) {
	if !s.Configured() {
		return UploadGrant{}, ErrNotConfigured
	}

	ext, err := extFromContentType(contentType)
	if err != nil {
		return UploadGrant{}, err
	}

	key := uuid.New().String() + "." + ext
	if name := slug.From(baseName); name != "" {
		key = name + "-" + key
	}

	return s.signWriteKey(key, contentType)
}

// SignAvatarWrite is SignWrite with a fixed key layout for avatars:
// avatars/<yyyymmdd>/<userID>-<uuid>.<ext>. The date segment is only there
// so a human scanning the bucket can tell uploads apart. The grant also
// carries the public (unsigned) URL, usable once the object is made public.
func (s *Service) SignAvatarWrite(ctx context.Context, userID, contentType string) (UploadGrant, error) {
	if !s.Configured() {
		return UploadGrant{}, ErrNotConfigured
	}

	ext, err := extFromContentType(contentType)
	if err != nil {
		return UploadGrant{}, err
	}

	key := fmt.Sprintf("avatars/%s/%s-%s.%s",
		time.Now().UTC().Format("20060102"), userID, uuid.New().String(), ext)

	grant, err := s.signWriteKey(key, contentType)
	if err != nil {
		return UploadGrant{}, err
	}
	if s.publicBase != "" {
		grant.PublicURL = s.publicBase + "/" + key
	}
	return grant, nil
}

func (s *Service) signWriteKey(key, contentType string) (UploadGrant, error) {
	expires := time.Now().Add(WriteTTL)
	url, err := s.signer.SignedURL(key, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      "PUT",
		ContentType: contentType,
		Expires:     expires,
	})
	if err != nil {
		return UploadGrant{}, fmt.Errorf("signing write URL for %q: %w", key, err)
	}

	return UploadGrant{Key: key, URL: url, ExpiresAt: expires}, nil
}

// extFromContentType maps "image/png" -> "png". Only image types are
// accepted for uploads.
func extFromContentType(contentType string) (string, error) {
	kind, sub, ok := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), "/")
	if !ok || kind != "image" || sub == "" {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	if sub == "jpeg" {
		return "jpg", nil
	}
	return sub, nil
}
