package repository

import (
	"context"
	"sync"

	"wardshift/internal/domain"

	"github.com/google/uuid"
)

// MemoryProfilesRepo supports DB-less dev and handler tests.
type MemoryProfilesRepo struct {
	mu       sync.RWMutex
	profiles map[string]domain.ClinicianProfile // userID -> profile
}

var _ ProfilesRepository = (*MemoryProfilesRepo)(nil)

func NewMemoryProfilesRepo() *MemoryProfilesRepo {
	return &MemoryProfilesRepo{profiles: map[string]domain.ClinicianProfile{}}
}

// UpsertProfile seeds or replaces a profile (dev bootstrap and tests).
func (r *MemoryProfilesRepo) UpsertProfile(userID, fullName, hospital, service string) domain.ClinicianProfile {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := domain.ClinicianProfile{
		ProfileID: uuid.NewString(),
		UserID:    userID,
		FullName:  fullName,
		Hospital:  hospital,
		Service:   service,
	}
	r.profiles[userID] = p
	return p
}

func (r *MemoryProfilesRepo) GetProfileByUserID(_ context.Context, userID string) (*domain.ClinicianProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}
