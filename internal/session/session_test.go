package session

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/repasse/repasse-go/internal/platform/errors"
	"github.com/repasse/repasse-go/internal/storage"
)

// fakeKV is an in-memory KV with injectable write failures.
type fakeKV struct {
	values   map[string]string
	putErr   error
	purgeErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}}
}

func (f *fakeKV) Get(ctx context.Context, bucket, key string) (string, error) {
	value, ok := f.values[bucket+"/"+key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (f *fakeKV) Put(ctx context.Context, bucket, key, value string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.values[bucket+"/"+key] = value
	return nil
}

func (f *fakeKV) Delete(ctx context.Context, bucket, key string) error {
	delete(f.values, bucket+"/"+key)
	return nil
}

func (f *fakeKV) Purge(ctx context.Context, bucket string) error {
	if f.purgeErr != nil {
		return f.purgeErr
	}
	for key := range f.values {
		if len(key) > len(bucket) && key[:len(bucket)+1] == bucket+"/" {
			delete(f.values, key)
		}
	}
	return nil
}

func (f *fakeKV) Close() error { return nil }

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "3"}
	if !expiresAt.IsZero() {
		claims["exp"] = expiresAt.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestRestoreEmptyWhenNothingPersisted(t *testing.T) {
	t.Parallel()

	store := NewStore(newFakeKV(), nil)
	sess := store.Restore(context.Background())
	if sess.IsAuthenticated() {
		t.Fatal("expected empty session")
	}
	if store.IsAuthenticated() {
		t.Fatal("store should report unauthenticated")
	}
}

func TestSetThenRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	token := signedToken(t, time.Now().Add(time.Hour))
	first := NewStore(kv, nil)
	if err := first.Set(context.Background(), Session{UserID: 3, Token: token}); err != nil {
		t.Fatalf("set session: %v", err)
	}

	second := NewStore(kv, nil)
	sess := second.Restore(context.Background())
	if sess.UserID != 3 {
		t.Fatalf("user id = %d, want 3", sess.UserID)
	}
	if sess.Token != token {
		t.Fatal("token did not survive the round trip")
	}
	if !second.IsAuthenticated() {
		t.Fatal("store should report authenticated after restore")
	}
}

func TestRestoreTreatsCorruptPayloadAsEmpty(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.values[storage.BucketSession+"/current"] = "{not json"
	store := NewStore(kv, nil)

	sess := store.Restore(context.Background())
	if sess.IsAuthenticated() {
		t.Fatal("corrupt payload should restore as empty session")
	}
}

func TestRestoreTreatsGarbledTokenAsEmpty(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.values[storage.BucketSession+"/current"] = `{"userId":3,"token":"not-a-jwt"}`
	store := NewStore(kv, nil)

	if store.Restore(context.Background()).IsAuthenticated() {
		t.Fatal("garbled token should restore as empty session")
	}
}

func TestRestoreDropsExpiredToken(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store := NewStore(kv, nil)
	expired := signedToken(t, time.Now().Add(-time.Hour))
	if err := store.Set(context.Background(), Session{UserID: 3, Token: expired}); err != nil {
		t.Fatalf("set session: %v", err)
	}

	if NewStore(kv, nil).Restore(context.Background()).IsAuthenticated() {
		t.Fatal("expired token should restore as empty session")
	}
}

func TestRestoreKeepsTokenWithoutExpiry(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store := NewStore(kv, nil)
	token := signedToken(t, time.Time{})
	if err := store.Set(context.Background(), Session{UserID: 3, Token: token}); err != nil {
		t.Fatalf("set session: %v", err)
	}

	if !NewStore(kv, nil).Restore(context.Background()).IsAuthenticated() {
		t.Fatal("token without exp claim should restore")
	}
}

func TestFailedWriteKeepsInMemorySession(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.putErr = stderrors.New("disk full")
	store := NewStore(kv, nil)

	err := store.Set(context.Background(), Session{UserID: 3, Token: "tok"})
	if errors.CodeOf(err) != errors.CodeStorageWriteFailed {
		t.Fatalf("error code = %v, want %v", errors.CodeOf(err), errors.CodeStorageWriteFailed)
	}
	if !store.IsAuthenticated() {
		t.Fatal("in-memory session must remain authoritative after a failed write")
	}
}

func TestClearDropsSession(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store := NewStore(kv, nil)
	token := signedToken(t, time.Now().Add(time.Hour))
	if err := store.Set(context.Background(), Session{UserID: 3, Token: token}); err != nil {
		t.Fatalf("set session: %v", err)
	}

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatal("store should be unauthenticated after clear")
	}
	if NewStore(kv, nil).Restore(context.Background()).IsAuthenticated() {
		t.Fatal("persisted session should be gone after clear")
	}
}
