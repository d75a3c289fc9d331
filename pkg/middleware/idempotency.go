package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"geobus/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyHeader   = "Idempotency-Key"
	idempotencyRedisKey = "geobus:idempotency:"
	maxIdempotencyKey   = 255
)

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, bool, error)
	Set(ctx context.Context, key string, response *CachedResponse) error
	Stop()
}

type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

type InMemoryIdempotencyStore struct {
	mu       sync.RWMutex
	store    map[string]*CachedResponse
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		store:  make(map[string]*CachedResponse),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *InMemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, bool, error) {
	s.mu.RLock()
	response, exists := s.store[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if time.Since(response.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.store, key)
		s.mu.Unlock()
		return nil, false, nil
	}

	return response, true, nil
}

func (s *InMemoryIdempotencyStore) Set(_ context.Context, key string, response *CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	response.CreatedAt = time.Now()
	s.store[key] = response
	return nil
}

func (s *InMemoryIdempotencyStore) cleanup() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, response := range s.store {
				if time.Since(response.CreatedAt) > s.ttl {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RedisIdempotencyStore shares cached responses across server instances.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool, error) {
	raw, err := s.client.Get(ctx, idempotencyRedisKey+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, err
	}
	return &cached, true, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) error {
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		return err
	}
	// SetNX keeps the first completed response when two retries race.
	return s.client.SetNX(ctx, idempotencyRedisKey+key, raw, s.ttl).Err()
}

// Stop is a no-op; the Redis client is owned by pkg/client.
func (s *RedisIdempotencyStore) Stop() {}

type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (rc *responseCapture) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	rc.body.Write(b)
	return rc.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response for a repeated key. Keys are
// scoped by method, path and credential so one user cannot replay another's.
// Store failures degrade to normal processing.
func Idempotency(store IdempotencyStore, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get(IdempotencyHeader)
			if rawKey == "" || len(rawKey) > maxIdempotencyKey || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key := scopedIdempotencyKey(r, rawKey)

			cached, found, err := store.Get(r.Context(), key)
			if err != nil {
				log.Warn("Idempotency lookup failed", "request_id", RequestID(r.Context()), "error", err)
			}
			if found {
				replayCachedResponse(w, cached)
				return
			}

			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(capture, r)

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				return
			}
			if err := store.Set(context.WithoutCancel(r.Context()), key, &CachedResponse{
				StatusCode: capture.statusCode,
				Headers:    w.Header().Clone(),
				Body:       capture.body.Bytes(),
			}); err != nil {
				log.Warn("Idempotency store failed", "request_id", RequestID(r.Context()), "error", err)
			}
		})
	}
}

func scopedIdempotencyKey(r *http.Request, key string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + r.Header.Get("Authorization") + " " + key))
	return hex.EncodeToString(sum[:])
}

func replayCachedResponse(w http.ResponseWriter, cached *CachedResponse) {
	for key, values := range cached.Headers {
		if key == http.CanonicalHeaderKey(RequestIDHeader) {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}
