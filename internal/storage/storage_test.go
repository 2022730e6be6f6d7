package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
)

// fakeSigner records signing calls and fabricates URLs so tests never touch
// GCS or credentials.
type fakeSigner struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (f *fakeSigner) SignedURL(object string, opts *gcs.SignedURLOptions) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.fail != nil {
		return "", f.fail
	}
	return fmt.Sprintf("https://signed.example/%s?method=%s", object, opts.Method), nil
}

func (f *fakeSigner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testService(signer urlSigner) *Service {
	return &Service{signer: signer, bucket: "test-bucket", publicBase: "https://cdn.example"}
}

// TestNew_ClientOutlivesCallerContext verifies the GCS client is dialed with
// a context detached from the caller's: the first request to build the shared
// service ends, but the client's credential plumbing keeps working.
func TestNew_ClientOutlivesCallerContext(t *testing.T) {
	t.Setenv("GCS_BUCKET", "test-bucket")

	var dialCtx context.Context
	orig := openBucket
	openBucket = func(ctx context.Context, bucket string) (urlSigner, error) {
		dialCtx = ctx
		return &fakeSigner{}, nil
	}
	defer func() { openBucket = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	svc, err := New(ctx)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected a configured service with GCS_BUCKET set")
	}

	// Simulate the first request's handler returning.
	cancel()

	if dialCtx == nil {
		t.Fatal("openBucket was never called")
	}
	if err := dialCtx.Err(); err != nil {
		t.Errorf("client context died with the request: %v", err)
	}
}

// TestUnconfiguredService verifies the inert placeholder: construction never
// panics, every operation reports ErrNotConfigured.
func TestUnconfiguredService(t *testing.T) {
	svc := &Service{}
	ctx := context.Background()

	if svc.Configured() {
		t.Fatal("empty service should not report configured")
	}

	if _, err := svc.SignRead(ctx, "some-key.png"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("SignRead: expected ErrNotConfigured, got %v", err)
	}
	if _, err := svc.SignWrite(ctx, "image/png", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("SignWrite: expected ErrNotConfigured, got %v", err)
	}
	if _, err := svc.SignAvatarWrite(ctx, "user-1", "image/png"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("SignAvatarWrite: expected ErrNotConfigured, got %v", err)
	}
	if err := svc.EnrichImages(ctx, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("EnrichImages: expected ErrNotConfigured, got %v", err)
	}
}

// TestSignRead_Window verifies the grant carries the key, a non-empty URL,
// and an expiry at least 14 minutes out for the 15-minute read policy.
func TestSignRead_Window(t *testing.T) {
	svc := testService(&fakeSigner{})

	before := time.Now()
	grant, err := svc.SignRead(context.Background(), "toys/abc.png")
	if err != nil {
		t.Fatalf("SignRead: %v", err)
	}

	if grant.Key != "toys/abc.png" {
		t.Errorf("expected key preserved, got %q", grant.Key)
	}
	if grant.URL == "" {
		t.Error("expected a non-empty signed URL")
	}
	if grant.ExpiresAt.Before(before.Add(14 * time.Minute)) {
		t.Errorf("expiry %v is less than 14m after issuance %v", grant.ExpiresAt, before)
	}
}

// TestSignRead_Repeatable verifies re-signing the same key before expiry is
// not an error (URLs are regenerated, never cached).
func TestSignRead_Repeatable(t *testing.T) {
	svc := testService(&fakeSigner{})

	for i := 0; i < 3; i++ {
		if _, err := svc.SignRead(context.Background(), "toys/abc.png"); err != nil {
			t.Fatalf("re-sign %d: %v", i, err)
		}
	}
}

// TestSignWrite_KeyShape verifies extension derivation and key uniqueness.
func TestSignWrite_KeyShape(t *testing.T) {
	svc := testService(&fakeSigner{})
	ctx := context.Background()

	grant, err := svc.SignWrite(ctx, "image/png", "")
	if err != nil {
		t.Fatalf("SignWrite: %v", err)
	}
	if !strings.HasSuffix(grant.Key, ".png") {
		t.Errorf("expected key ending in .png, got %q", grant.Key)
	}
	if grant.URL == "" {
		t.Error("expected a non-empty upload URL")
	}
	if !grant.ExpiresAt.After(time.Now()) {
		t.Error("expected expiry in the future")
	}

	// jpeg normalizes to jpg
	grant, err = svc.SignWrite(ctx, "image/jpeg", "")
	if err != nil {
		t.Fatalf("SignWrite jpeg: %v", err)
	}
	if !strings.HasSuffix(grant.Key, ".jpg") {
		t.Errorf("expected key ending in .jpg, got %q", grant.Key)
	}

	// base name becomes a slug prefix
	grant, err = svc.SignWrite(ctx, "image/png", "LEGO Crane!")
	if err != nil {
		t.Fatalf("SignWrite with name: %v", err)
	}
	if !strings.HasPrefix(grant.Key, "lego-crane-") {
		t.Errorf("expected slugged prefix, got %q", grant.Key)
	}
}

// TestSignWrite_UniqueKeys verifies no key collisions across 10k issuances.
func TestSignWrite_UniqueKeys(t *testing.T) {
	svc := testService(&fakeSigner{})
	ctx := context.Background()

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		grant, err := svc.SignWrite(ctx, "image/png", "")
		if err != nil {
			t.Fatalf("SignWrite %d: %v", i, err)
		}
		if _, dup := seen[grant.Key]; dup {
			t.Fatalf("key collision after %d issuances: %q", i, grant.Key)
		}
		seen[grant.Key] = struct{}{}
	}
}

// TestSignWrite_RejectsNonImages verifies only image/* content types are signable.
func TestSignWrite_RejectsNonImages(t *testing.T) {
	svc := testService(&fakeSigner{})
	ctx := context.Background()

	for _, ct := range []string{"", "application/pdf", "image/", "imagepng", "text/plain"} {
		if _, err := svc.SignWrite(ctx, ct, ""); err == nil {
			t.Errorf("expected error for content type %q", ct)
		}
	}
}

// TestSignAvatarWrite verifies the avatar key layout and the constructed
// public URL.
func TestSignAvatarWrite(t *testing.T) {
	svc := testService(&fakeSigner{})

	grant, err := svc.SignAvatarWrite(context.Background(), "user-42", "image/webp")
	if err != nil {
		t.Fatalf("SignAvatarWrite: %v", err)
	}

	wantPrefix := "avatars/" + time.Now().UTC().Format("20060102") + "/user-42-"
	if !strings.HasPrefix(grant.Key, wantPrefix) {
		t.Errorf("expected key prefix %q, got %q", wantPrefix, grant.Key)
	}
	if !strings.HasSuffix(grant.Key, ".webp") {
		t.Errorf("expected .webp suffix, got %q", grant.Key)
	}
	if grant.PublicURL != "https://cdn.example/"+grant.Key {
		t.Errorf("unexpected public URL %q", grant.PublicURL)
	}
}

// TestSignRead_SignerError verifies signer failures surface instead of
// producing an empty grant.
func TestSignRead_SignerError(t *testing.T) {
	svc := testService(&fakeSigner{fail: errors.New("credentials rotated")})

	if _, err := svc.SignRead(context.Background(), "toys/abc.png"); err == nil {
		t.Error("expected an error from a failing signer")
	}
}
