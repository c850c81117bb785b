package service

import (
	"context"
	"errors"
	"spotbook/internal/bookings/conflict"
	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/internal/bookings/events"
	"spotbook/internal/bookings/lock"
	"spotbook/internal/bookings/metrics"
	"spotbook/internal/bookings/repository"
	"spotbook/pkg/config"
	apperrors "spotbook/pkg/errors"
	"spotbook/pkg/interval"
	"spotbook/pkg/model"
	"sync"
	"time"

	"github.com/google/uuid"
)

// publishTimeout bounds the booking event publish that follows a commit.
const publishTimeout = 5 * time.Second

type BookingService interface {
	// Create books req.Period on the spot for the requester. Checks run in
	// order: spot exists, requester is not the owner, range is valid, dates
	// are free.
	Create(ctx context.Context, req model.BookingRequest) (*model.Reservation, error)
	// List returns the spot's reservations in insertion order, projected for
	// the requester.
	List(ctx context.Context, spotID, requesterID string) ([]model.BookingView, error)
}

type bookingService struct {
	reservations repository.ReservationRepository
	spots        repository.SpotRepository
	users        repository.UserRepository
	locker       lock.Locker
	publisher    events.Publisher
	metrics      *metrics.Metrics
	cfg          *config.Config
	now          func() time.Time
}

func NewBookingService(
	reservations repository.ReservationRepository,
	spots repository.SpotRepository,
	users repository.UserRepository,
	locker lock.Locker,
	publisher events.Publisher,
	metrics *metrics.Metrics,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		reservations: reservations,
		spots:        spots,
		users:        users,
		locker:       locker,
		publisher:    publisher,
		metrics:      metrics,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, req model.BookingRequest) (*model.Reservation, error) {
	log := s.cfg.Log.Ctx(ctx)

	spot, err := s.findSpot(ctx, req.SpotID)
	if err != nil {
		s.metrics.Decision(outcomeOf(err))
		return nil, err
	}

	if spot.OwnerID == req.RequesterID {
		log.Warn("Owner attempted to book own spot", "spot_id", spot.ID, "user_id", req.RequesterID)
		s.metrics.Decision(metrics.OutcomeOwner)
		return nil, bookingserrors.OwnerCannotBook()
	}

	if d := conflict.Evaluate(req.Period, nil); d.Invalid {
		s.metrics.Decision(metrics.OutcomeInvalidRange)
		return nil, bookingserrors.InvalidRange(d.Messages())
	}

	reservation, err := s.commit(ctx, req)
	if err != nil {
		s.metrics.Decision(outcomeOf(err))
		return nil, err
	}
	s.metrics.Decision(metrics.OutcomeAccepted)

	log.Info("Booking created successfully",
		"id", reservation.ID,
		"spot_id", reservation.SpotID,
		"user_id", reservation.UserID,
		"period", reservation.Period().String(),
	)

	// The reservation is committed; the caller going away must not cut the
	// event short, and a slow broker must not hold the response forever.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.BookingCreated(pubCtx, reservation); err != nil {
		log.Error("Failed to publish booking event", "id", reservation.ID, "error", err)
	}

	return reservation, nil
}

// commit evaluates and appends the candidate while holding the spot's lock.
// The snapshot, the decision and the insert share one transaction.
func (s *bookingService) commit(ctx context.Context, req model.BookingRequest) (*model.Reservation, error) {
	log := s.cfg.Log.Ctx(ctx)

	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, req.SpotID)
	s.metrics.LockWait(time.Since(waitStart))
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Gave up waiting for spot lock", "spot_id", req.SpotID, "error", err)
			return nil, apperrors.Timeout("Timed out waiting to book this spot")
		}
		log.Error("Failed to acquire spot lock", "spot_id", req.SpotID, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}
	defer unlock()

	// The lock may be granted after the caller has already been answered.
	if ctx.Err() != nil {
		log.Warn("Spot lock granted after request ended", "spot_id", req.SpotID)
		return nil, apperrors.Timeout("Timed out waiting to book this spot")
	}

	var reservation *model.Reservation
	err = s.reservations.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.reservations.FindBySpot(txCtx, req.SpotID)
		if err != nil {
			return apperrors.Internal("Failed to load bookings", err)
		}

		d := conflict.Evaluate(req.Period, periods(existing))
		if !d.Accepted() {
			log.Info("Booking rejected on date conflict",
				"spot_id", req.SpotID,
				"candidate", req.Period.String(),
				"conflicts_with", existing[d.Index].ID,
			)
			return bookingserrors.DateConflict(d.Messages())
		}

		seq, err := s.reservations.BumpSpotGuard(txCtx, req.SpotID)
		if err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}

		now := s.now().UTC()
		r := &model.Reservation{
			ID:        uuid.NewString(),
			SpotID:    req.SpotID,
			UserID:    req.RequesterID,
			StartDate: req.Period.Start,
			EndDate:   req.Period.End,
			CreatedAt: now,
			UpdatedAt: now,
			Seq:       seq,
		}
		if err := s.reservations.Create(txCtx, r); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		reservation = r
		return nil
	})
	if err != nil {
		if !errors.Is(err, bookingserrors.ErrDateConflict) {
			log.Error("Failed to create booking", "spot_id", req.SpotID, "error", err)
		}
		return nil, asAppError(err, "Failed to create booking")
	}

	return reservation, nil
}

func (s *bookingService) List(ctx context.Context, spotID, requesterID string) ([]model.BookingView, error) {
	var spot *model.Spot
	var reservations []*model.Reservation
	var errSpot, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		spot, errSpot = s.findSpot(ctx, spotID)
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.reservations.FindBySpot(ctx, spotID)
		if errFind != nil {
			s.cfg.Log.Ctx(ctx).Error("Failed to list bookings", "spot_id", spotID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errSpot != nil {
		return nil, errSpot
	}
	if errFind != nil {
		return nil, errFind
	}

	s.metrics.Listed()

	views := make([]model.BookingView, 0, len(reservations))
	if spot.OwnerID != requesterID {
		for _, r := range reservations {
			views = append(views, publicView(r))
		}
		return views, nil
	}

	renters := make(map[string]*model.Renter)
	for _, r := range reservations {
		renter, seen := renters[r.UserID]
		if !seen {
			renter = s.lookupRenter(ctx, r.UserID)
			renters[r.UserID] = renter
		}
		views = append(views, ownerView(r, renter))
	}
	return views, nil
}

func (s *bookingService) findSpot(ctx context.Context, spotID string) (*model.Spot, error) {
	spot, err := s.spots.FindByID(ctx, spotID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrSpotNotFound) {
			return nil, bookingserrors.SpotNotFound(spotID)
		}
		s.cfg.Log.Ctx(ctx).Error("Failed to look up spot", "spot_id", spotID, "error", err)
		return nil, apperrors.Internal("Failed to look up spot", err)
	}
	return spot, nil
}

// lookupRenter returns nil for users the directory does not know.
func (s *bookingService) lookupRenter(ctx context.Context, userID string) *model.Renter {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, bookingserrors.ErrUserNotFound) {
			s.cfg.Log.Ctx(ctx).Warn("Failed to look up renter", "user_id", userID, "error", err)
		}
		return nil
	}
	return user.Renter()
}

func publicView(r *model.Reservation) model.BookingView {
	return model.BookingView{
		SpotID:    r.SpotID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
	}
}

func ownerView(r *model.Reservation, renter *model.Renter) model.BookingView {
	createdAt, updatedAt := r.CreatedAt, r.UpdatedAt
	return model.BookingView{
		ID:        r.ID,
		SpotID:    r.SpotID,
		UserID:    r.UserID,
		User:      renter,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		CreatedAt: &createdAt,
		UpdatedAt: &updatedAt,
	}
}

func periods(reservations []*model.Reservation) []interval.Range {
	out := make([]interval.Range, len(reservations))
	for i, r := range reservations {
		out[i] = r.Period()
	}
	return out
}

func asAppError(err error, message string) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(message, err)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, bookingserrors.ErrSpotNotFound):
		return metrics.OutcomeSpotNotFound
	case errors.Is(err, bookingserrors.ErrDateConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}
