package repository

import (
	"context"
	"fmt"
	bookingserrors "spotbook/internal/bookings/errors"
	mongotx "spotbook/pkg/db/mongo"
	"spotbook/pkg/model"
	"sync"
)

// MemoryReservationRepository keeps reservations in process. It has no
// transactions of its own; callers serialize writers per spot with a lock.
type MemoryReservationRepository struct {
	mu     sync.RWMutex
	bySpot map[string][]model.Reservation
	ids    map[string]struct{}
	guards map[string]int64
	mongotx.NoTransaction
}

func NewMemoryReservationRepository() *MemoryReservationRepository {
	return &MemoryReservationRepository{
		bySpot: make(map[string][]model.Reservation),
		ids:    make(map[string]struct{}),
		guards: make(map[string]int64),
	}
}

func (r *MemoryReservationRepository) Create(_ context.Context, reservation *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[reservation.ID]; exists {
		return fmt.Errorf("%w: %s", bookingserrors.ErrDuplicateReservation, reservation.ID)
	}
	for _, held := range r.bySpot[reservation.SpotID] {
		if held.Seq == reservation.Seq {
			return fmt.Errorf("%w: spot %s seq %d", bookingserrors.ErrDuplicateReservation, reservation.SpotID, reservation.Seq)
		}
	}

	r.ids[reservation.ID] = struct{}{}
	r.bySpot[reservation.SpotID] = append(r.bySpot[reservation.SpotID], *reservation)
	return nil
}

// FindBySpot returns copies in insertion order.
func (r *MemoryReservationRepository) FindBySpot(_ context.Context, spotID string) ([]*model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	held := r.bySpot[spotID]
	out := make([]*model.Reservation, 0, len(held))
	for i := range held {
		copied := held[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (r *MemoryReservationRepository) BumpSpotGuard(_ context.Context, spotID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.guards[spotID]++
	return r.guards[spotID], nil
}

// All returns every reservation grouped by spot. Used by tests to check the
// no-overlap invariant.
func (r *MemoryReservationRepository) All() map[string][]model.Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]model.Reservation, len(r.bySpot))
	for spotID, held := range r.bySpot {
		out[spotID] = append([]model.Reservation(nil), held...)
	}
	return out
}

type MemorySpotRepository struct {
	mu    sync.RWMutex
	spots map[string]model.Spot
}

func NewMemorySpotRepository(spots ...model.Spot) *MemorySpotRepository {
	r := &MemorySpotRepository{spots: make(map[string]model.Spot, len(spots))}
	for _, s := range spots {
		r.spots[s.ID] = s
	}
	return r
}

func (r *MemorySpotRepository) Put(spot model.Spot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spots[spot.ID] = spot
}

func (r *MemorySpotRepository) FindByID(_ context.Context, id string) (*model.Spot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spot, ok := r.spots[id]
	if !ok {
		return nil, bookingserrors.ErrSpotNotFound
	}
	return &spot, nil
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewMemoryUserRepository(users ...model.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[string]model.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *MemoryUserRepository) Put(user model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, bookingserrors.ErrUserNotFound
	}
	return &user, nil
}
