package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Upload limits.
const (
	MaxFileSize      = 5 << 20
	MaxProductImages = 5
	MaxReviewImages  = 3
)

// Key prefixes.
const (
	PrefixProducts = "products"
	PrefixReviews  = "reviews"
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// File is an uploaded image held in memory.
type File struct {
	Name string
	Data []byte
}

// Service validates, stores and serves images.
type Service struct {
	store  ObjectStore
	signer *Signer
	ttl    time.Duration
}

// NewService creates a media service. Links it issues live for ttl.
func NewService(store ObjectStore, signer *Signer, ttl time.Duration) *Service {
	return &Service{store: store, signer: signer, ttl: ttl}
}

// Upload stores files under prefix concurrently and returns their keys in
// input order. If any upload fails the objects already stored are deleted.
func (s *Service) Upload(ctx context.Context, prefix string, files []File, limit int) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > limit {
		return nil, apperr.Validation("at most %d images are allowed", limit)
	}

	keys := make([]string, len(files))
	types := make([]string, len(files))
	for i, f := range files {
		ct, err := checkImage(f)
		if err != nil {
			return nil, err
		}
		keys[i] = prefix + "/" + uuid.New().String() + strings.ToLower(path.Ext(f.Name))
		types[i] = ct
	}

	var (
		mu     sync.Mutex
		stored []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		g.Go(func() error {
			if _, err := s.store.Put(gctx, keys[i], files[i].Data, types[i]); err != nil {
				return fmt.Errorf("failed to store %s: %w", files[i].Name, err)
			}
			mu.Lock()
			stored = append(stored, keys[i])
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// ctx may already be done; cleanup runs on its own deadline.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		s.Delete(cleanupCtx, stored)
		return nil, apperr.Wrap(apperr.KindUpstream, err, "image upload failed")
	}
	return keys, nil
}

func checkImage(f File) (string, error) {
	ct, ok := imageTypes[strings.ToLower(path.Ext(f.Name))]
	if !ok {
		return "", apperr.Validation("%s: only jpg, jpeg, png and gif images are allowed", f.Name)
	}
	if len(f.Data) == 0 {
		return "", apperr.Validation("%s is empty", f.Name)
	}
	if len(f.Data) > MaxFileSize {
		return "", apperr.Validation("%s exceeds the %d MB limit", f.Name, MaxFileSize>>20)
	}
	return ct, nil
}

// Delete removes objects best effort. It reports how many were removed;
// failures are logged.
func (s *Service) Delete(ctx context.Context, keys []string) int {
	removed := 0
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			log.Printf("[media] Warning: failed to delete %s: %v", key, err)
			continue
		}
		removed++
	}
	return removed
}

// URL returns a signed link for key.
func (s *Service) URL(key string) (string, error) {
	return s.signer.URL(key, s.ttl)
}

// URLs maps keys to signed links; keys that cannot be signed are skipped.
func (s *Service) URLs(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		u, err := s.URL(key)
		if err != nil {
			log.Printf("[media] Warning: failed to sign %s: %v", key, err)
			continue
		}
		out[key] = u
	}
	return out
}

// Open returns an object after checking its link token.
func (s *Service) Open(ctx context.Context, key, token string) ([]byte, *ObjectInfo, error) {
	if err := s.signer.Verify(key, token); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindForbidden, err, "%v", err)
	}
	data, info, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, nil, apperr.NotFound("image not found")
		}
		return nil, nil, err
	}
	return data, info, nil
}
