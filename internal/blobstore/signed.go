package blobstore

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SignedStore is a Store backed by a single HTTP file endpoint, issuing
// HMAC-signed expiring URLs. It stands in for a cloud object store in
// development and tests; the key space and URL contract match what a real
// backend would serve.
type SignedStore struct {
	baseURL string
	secret  []byte
	now     func() time.Time

	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewSignedStore constructs a SignedStore rooted at baseURL.
func NewSignedStore(baseURL, secret string) *SignedStore {
	return &SignedStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		now:     time.Now,
		keys:    make(map[string]struct{}),
	}
}

// PresignedUpload allocates a key and returns signed upload and file URLs.
func (s *SignedStore) PresignedUpload(_ context.Context, prefix, fileName, mimeType string) (*Upload, error) {
	if prefix == "" || fileName == "" {
		return nil, fmt.Errorf("prefix and file name are required")
	}
	key := path.Join(prefix, uuid.New().String()+"-"+path.Base(fileName))

	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()

	exp := s.now().Add(15 * time.Minute).Unix()
	q := url.Values{
		"exp":  {strconv.FormatInt(exp, 10)},
		"type": {mimeType},
		"sig":  {s.sign(key, exp)},
	}
	return &Upload{
		UploadURL: fmt.Sprintf("%s/%s?%s", s.baseURL, key, q.Encode()),
		FileURL:   fmt.Sprintf("%s/%s", s.baseURL, key),
		Key:       key,
	}, nil
}

// PresignedDownload returns a retrieval URL that expires after ttl.
func (s *SignedStore) PresignedDownload(_ context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	exp := s.now().Add(ttl).Unix()
	q := url.Values{
		"exp": {strconv.FormatInt(exp, 10)},
		"sig": {s.sign(key, exp)},
	}
	return fmt.Sprintf("%s/%s?%s", s.baseURL, key, q.Encode()), nil
}

// Delete removes the key. Missing keys are a no-op.
func (s *SignedStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
	return nil
}

// List returns all known keys under prefix, sorted.
func (s *SignedStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.keys {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Verify checks a signed URL's query parameters against the key.
func (s *SignedStore) Verify(key string, expUnix int64, sig string) bool {
	if s.now().Unix() > expUnix {
		return false
	}
	expected, err := hex.DecodeString(s.sign(key, expUnix))
	if err != nil {
		return false
	}
	given, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, given)
}

func (s *SignedStore) sign(key string, exp int64) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%s:%d", key, exp)
	return hex.EncodeToString(h.Sum(nil))
}
