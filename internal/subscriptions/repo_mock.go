package subscriptions

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var _ tiersRepo = (*repoMock)(nil)

type repoMock struct {
	Tiers        map[int]*Tier
	TrainerTiers map[int]int
	ListCalls    int
	mutex        sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Tiers:        make(map[int]*Tier),
		TrainerTiers: make(map[int]int),
	}
}

func (r *repoMock) ListTiers(_ context.Context) ([]Tier, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.ListCalls++

	tiers := make([]Tier, 0, len(r.Tiers))
	for id := range r.Tiers {
		tiers = append(tiers, *r.Tiers[id])
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].PriceCents < tiers[j].PriceCents
	})
	return tiers, nil
}

func (r *repoMock) GetTier(_ context.Context, id int) (*Tier, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tier, ok := r.Tiers[id]
	if !ok {
		return nil, ErrTierNotFound
	}
	return tier, nil
}

func (r *repoMock) TrainerTier(_ context.Context, trainerID int) (*Tier, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	tierID, ok := r.TrainerTiers[trainerID]
	if !ok {
		return nil, ErrNoTierAssigned
	}

	tier, ok := r.Tiers[tierID]
	if !ok {
		return nil, errors.New("assigned tier missing from catalog")
	}
	return tier, nil
}

func (r *repoMock) AssignTier(_ context.Context, trainerID, tierID int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.TrainerTiers[trainerID] = tierID
	return nil
}
