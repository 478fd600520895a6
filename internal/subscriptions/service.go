package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fitsphere/backend/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	oneMinute        = 60
	tiersCacheExpire = oneMinute * 5
	tiersCacheKey    = "tiers::all"

	// trainers without an assigned tier get the trial allowance
	DefaultMaxClients = 3
)

type tiersRepo interface {
	ListTiers(ctx context.Context) ([]Tier, error)
	GetTier(ctx context.Context, id int) (*Tier, error)
	TrainerTier(ctx context.Context, trainerID int) (*Tier, error)
	AssignTier(ctx context.Context, trainerID, tierID int) error
}

// Service fronts the tiers repo with a small in-process cache. The
// tier catalog is static and read on every dashboard load, so it is
// a good fit for freecache.
type Service struct {
	repo  tiersRepo
	cache *freecache.Cache
}

func NewService(repo tiersRepo) *Service {
	megabyte := 1024 * 1024
	return &Service{
		repo:  repo,
		cache: freecache.NewCache(1 * megabyte),
	}
}

func (s *Service) ListTiers(ctx context.Context) (_ []Tier, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "subscriptions.listTiers")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if tiersBytes, err := s.cache.Get([]byte(tiersCacheKey)); err == nil {
		var tiers []Tier
		if err = json.Unmarshal(tiersBytes, &tiers); err == nil {
			log.Tracef("found %d tiers in cache", len(tiers))
			return tiers, nil
		}
		log.Errorf("failed to unmarshal tiers from cache: %s", err)
	}

	tiers, err := s.repo.ListTiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}

	tiersBytes, err := json.Marshal(tiers)
	if err != nil {
		return nil, fmt.Errorf("marshal tiers: %w", err)
	}
	if err := s.cache.Set([]byte(tiersCacheKey), tiersBytes, tiersCacheExpire); err != nil {
		log.Errorf("failed to write tiers cache: %s", err)
	}

	return tiers, nil
}

func (s *Service) GetTier(ctx context.Context, id int) (*Tier, error) {
	return s.repo.GetTier(ctx, id)
}

func (s *Service) TrainerTier(ctx context.Context, trainerID int) (*Tier, error) {
	return s.repo.TrainerTier(ctx, trainerID)
}

// MaxClients resolves the client cap for the given trainer from the
// assigned tier, falling back to the trial allowance.
func (s *Service) MaxClients(ctx context.Context, trainerID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "subscriptions.maxClients")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tier, err := s.repo.TrainerTier(ctx, trainerID)
	if err != nil {
		if errors.Is(err, ErrNoTierAssigned) {
			return DefaultMaxClients, nil
		}
		return 0, fmt.Errorf("trainer tier: %w", err)
	}

	return tier.MaxClients, nil
}

func (s *Service) AssignTier(ctx context.Context, trainerID, tierID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "subscriptions.assignTier")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := s.repo.GetTier(ctx, tierID); err != nil {
		return err
	}

	return s.repo.AssignTier(ctx, trainerID, tierID)
}
