package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/empireos/entitlement-api/internal/domain/license"
)

// Entitlements is the resolved grant of a license: tier defaults plus any
// per-license additions, deduplicated and sorted.
type Entitlements struct {
	Features []string `json:"features"`
	Modules  []string `json:"modules"`
}

// EntitlementService resolves effective feature/module sets. Resolution never
// mutates the license; results are cached in redis with a short TTL and
// invalidated whenever grants change.
type EntitlementService struct {
	repo   license.Repository
	cache  *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewEntitlementService(repo license.Repository, cache *goredis.Client, ttl time.Duration, logger *zap.Logger) *EntitlementService {
	return &EntitlementService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("EntitlementService"),
	}
}

// Resolve computes the effective entitlements for an already-loaded license:
// the union of the tier defaults and the license's stored grants. The stored
// grants include the defaults by construction at issuance, so applying the
// union twice yields the same set.
func (s *EntitlementService) Resolve(lic *license.License) (*Entitlements, error) {
	def, err := license.ResolveTierDefaults(lic.LicenseType)
	if err != nil {
		return nil, err
	}

	return &Entitlements{
		Features: unionSorted(def.Features, lic.Features),
		Modules:  unionSorted(def.Modules, lic.Modules),
	}, nil
}

// Effective loads the license and resolves its entitlements, going through
// the cache when one is configured.
func (s *EntitlementService) Effective(ctx context.Context, licenseID int64) (*Entitlements, error) {
	if s.cache != nil {
		if ent, ok := s.fromCache(ctx, licenseID); ok {
			return ent, nil
		}
	}

	lic, err := s.repo.FindByID(ctx, licenseID)
	if err != nil {
		return nil, fmt.Errorf("repository error loading license %d: %w", licenseID, err)
	}

	ent, err := s.Resolve(lic)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.toCache(ctx, licenseID, ent)
	}
	return ent, nil
}

func (s *EntitlementService) HasFeature(ctx context.Context, licenseID int64, name string) (bool, error) {
	ent, err := s.Effective(ctx, licenseID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ent.Features, name), nil
}

func (s *EntitlementService) HasModule(ctx context.Context, licenseID int64, name string) (bool, error) {
	ent, err := s.Effective(ctx, licenseID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ent.Modules, name), nil
}

// Invalidate drops the cached entitlements for a license. Called after grant
// appends and tier-affecting writes.
func (s *EntitlementService) Invalidate(ctx context.Context, licenseID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, entitlementCacheKey(licenseID)).Err(); err != nil {
		s.logger.Warn("Failed to invalidate entitlement cache", zap.Int64("license_id", licenseID), zap.Error(err))
	}
}

func (s *EntitlementService) fromCache(ctx context.Context, licenseID int64) (*Entitlements, bool) {
	raw, err := s.cache.Get(ctx, entitlementCacheKey(licenseID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			s.logger.Warn("Entitlement cache read failed", zap.Int64("license_id", licenseID), zap.Error(err))
		}
		return nil, false
	}

	var ent Entitlements
	if err := json.Unmarshal(raw, &ent); err != nil {
		s.logger.Warn("Entitlement cache entry is malformed, dropping it", zap.Int64("license_id", licenseID), zap.Error(err))
		s.Invalidate(ctx, licenseID)
		return nil, false
	}
	return &ent, true
}

func (s *EntitlementService) toCache(ctx context.Context, licenseID int64, ent *Entitlements) {
	raw, err := json.Marshal(ent)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, entitlementCacheKey(licenseID), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("Entitlement cache write failed", zap.Int64("license_id", licenseID), zap.Error(err))
	}
}

func entitlementCacheKey(licenseID int64) string {
	return fmt.Sprintf("entitlements:%d", licenseID)
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
