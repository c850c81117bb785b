package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"spotbook/internal/bookings/conflict"
	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/internal/bookings/lock"
	"spotbook/internal/bookings/metrics"
	"spotbook/internal/bookings/repository"
	"spotbook/pkg/config"
	mongotx "spotbook/pkg/db/mongo"
	apperrors "spotbook/pkg/errors"
	"spotbook/pkg/interval"
	"spotbook/pkg/logger"
	"spotbook/pkg/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID  = "owner-1"
	renterID = "renter-1"
	otherID  = "renter-2"
	spotID   = "spot-1"
)

type fixture struct {
	svc          BookingService
	reservations *repository.MemoryReservationRepository
	publisher    *recordingPublisher
	metrics      *metrics.Metrics
}

type recordingPublisher struct {
	mu    sync.Mutex
	saw   []*model.Reservation
	fails bool
}

func (p *recordingPublisher) BookingCreated(_ context.Context, r *model.Reservation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saw = append(p.saw, r)
	if p.fails {
		return errors.New("broker unavailable")
	}
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reservations := repository.NewMemoryReservationRepository()
	spots := repository.NewMemorySpotRepository(
		model.Spot{ID: spotID, OwnerID: ownerID, Name: "Lake cabin"},
		model.Spot{ID: "spot-2", OwnerID: ownerID, Name: "City loft"},
	)
	users := repository.NewMemoryUserRepository(
		model.User{ID: renterID, FirstName: "Ada", LastName: "Lovelace"},
	)
	pub := &recordingPublisher{}
	m := metrics.Nop()
	cfg := &config.Config{Log: logger.Discard()}

	return &fixture{
		svc:          NewBookingService(reservations, spots, users, lock.NewKeyedMutex(), pub, m, cfg),
		reservations: reservations,
		publisher:    pub,
		metrics:      m,
	}
}

func period(start, end string) interval.Range {
	return interval.Range{Start: interval.MustParseDate(start), End: interval.MustParseDate(end)}
}

func request(spot, user, start, end string) model.BookingRequest {
	return model.BookingRequest{SpotID: spot, RequesterID: user, Period: period(start, end)}
}

func requireAppError(t *testing.T, err error, code string, status int) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	require.Equal(t, code, appErr.Code, "error: %v", err)
	require.Equal(t, status, appErr.HTTPStatus)
	return appErr
}

func assertNoOverlap(t *testing.T, repo *repository.MemoryReservationRepository) {
	t.Helper()
	for spot, held := range repo.All() {
		for i := range held {
			for j := i + 1; j < len(held); j++ {
				assert.False(t, held[i].Period().Overlaps(held[j].Period()),
					"spot %s: %s overlaps %s", spot, held[i].Period(), held[j].Period())
			}
		}
	}
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)

	r, err := f.svc.Create(context.Background(), request(spotID, renterID, "2024-03-10", "2024-03-15"))
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, spotID, r.SpotID)
	assert.Equal(t, renterID, r.UserID)
	assert.True(t, r.StartDate.Equal(interval.MustParseDate("2024-03-10")))
	assert.True(t, r.EndDate.Equal(interval.MustParseDate("2024-03-15")))
	assert.False(t, r.CreatedAt.IsZero())
	assert.Equal(t, r.CreatedAt, r.UpdatedAt)
	assert.Equal(t, int64(1), r.Seq)

	require.Len(t, f.publisher.saw, 1)
	assert.Equal(t, r.ID, f.publisher.saw[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Decisions(metrics.OutcomeAccepted)))
}

func TestCreate_SpotNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), request("missing", renterID, "2024-03-15", "2024-03-10"))

	appErr := requireAppError(t, err, bookingserrors.CodeSpotNotFound, http.StatusNotFound)
	assert.Equal(t, bookingserrors.MsgSpotNotFound, appErr.Message)
	assert.ErrorIs(t, err, bookingserrors.ErrSpotNotFound)
}

func TestCreate_OwnerCannotBookRegardlessOfDates(t *testing.T) {
	f := newFixture(t)

	for _, req := range []model.BookingRequest{
		request(spotID, ownerID, "2024-03-10", "2024-03-15"),
		request(spotID, ownerID, "2024-03-15", "2024-03-10"),
	} {
		_, err := f.svc.Create(context.Background(), req)
		appErr := requireAppError(t, err, bookingserrors.CodeOwnerCannotBook, http.StatusForbidden)
		assert.Equal(t, bookingserrors.MsgOwnerCannotBook, appErr.Message)
	}
	assert.Empty(t, f.reservations.All())
}

func TestCreate_InvalidRangeBeforeConflictCheck(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		start, end string
	}{
		{"zero length", "2024-03-10", "2024-03-10"},
		{"inverted", "2024-03-15", "2024-03-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), request(spotID, renterID, tt.start, tt.end))
			appErr := requireAppError(t, err, bookingserrors.CodeInvalidRange, http.StatusBadRequest)
			assert.Equal(t, map[string]string{"endDate": conflict.MsgInvalidRange}, appErr.Fields)
		})
	}
	assert.Empty(t, f.reservations.All())
}

func TestCreate_Conflicts(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantFields map[string]string
	}{
		{
			name: "full containment", start: "2024-05-30", end: "2024-06-12",
			wantFields: map[string]string{"startDate": conflict.MsgStartConflict, "endDate": conflict.MsgEndConflict},
		},
		{
			name: "partial overlap at tail", start: "2024-06-05", end: "2024-06-20",
			wantFields: map[string]string{"startDate": conflict.MsgStartConflict},
		},
		{
			name: "partial overlap at head", start: "2024-05-28", end: "2024-06-03",
			wantFields: map[string]string{"endDate": conflict.MsgEndConflict},
		},
		{
			name: "inside existing", start: "2024-06-03", end: "2024-06-05",
			wantFields: map[string]string{"startDate": conflict.MsgStartConflict, "endDate": conflict.MsgEndConflict},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Create(context.Background(), request(spotID, otherID, "2024-06-01", "2024-06-10"))
			require.NoError(t, err)

			_, err = f.svc.Create(context.Background(), request(spotID, renterID, tt.start, tt.end))
			appErr := requireAppError(t, err, bookingserrors.CodeDateConflict, http.StatusForbidden)
			assert.Equal(t, bookingserrors.MsgDateConflict, appErr.Message)
			assert.Equal(t, tt.wantFields, appErr.Fields)
			assert.Len(t, f.reservations.All()[spotID], 1)
		})
	}
}

func TestCreate_AdjacentBookingsAccepted(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), request(spotID, renterID, "2024-03-10", "2024-03-15"))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), request(spotID, otherID, "2024-03-15", "2024-03-20"))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), request(spotID, otherID, "2024-03-05", "2024-03-10"))
	require.NoError(t, err)

	assert.Len(t, f.reservations.All()[spotID], 3)
	assertNoOverlap(t, f.reservations)
}

func TestCreate_RejectionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), request(spotID, otherID, "2024-06-01", "2024-06-10"))
	require.NoError(t, err)

	req := request(spotID, renterID, "2024-06-05", "2024-06-20")
	_, first := f.svc.Create(context.Background(), req)
	_, second := f.svc.Create(context.Background(), req)

	a, b := apperrors.AsAppError(first), apperrors.AsAppError(second)
	assert.Equal(t, a.Code, b.Code)
	assert.Equal(t, a.Fields, b.Fields)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Decisions(metrics.OutcomeConflict)))
}

func TestCreate_PublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.publisher.fails = true

	r, err := f.svc.Create(context.Background(), request(spotID, renterID, "2024-03-10", "2024-03-15"))
	require.NoError(t, err)
	assert.Len(t, f.reservations.All()[spotID], 1)
	assert.Equal(t, r.ID, f.reservations.All()[spotID][0].ID)
}

func TestCreate_ConcurrentOverlappingExactlyOneWins(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := newFixture(t)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		start := make(chan struct{})
		for i, p := range []model.BookingRequest{
			request(spotID, renterID, "2024-07-01", "2024-07-10"),
			request(spotID, otherID, "2024-07-05", "2024-07-12"),
		} {
			wg.Add(1)
			go func(i int, req model.BookingRequest) {
				defer wg.Done()
				<-start
				_, errs[i] = f.svc.Create(context.Background(), req)
			}(i, p)
		}
		close(start)
		wg.Wait()

		var ok, conflicted int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, bookingserrors.ErrDateConflict):
				conflicted++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, ok, "round %d", round)
		require.Equal(t, 1, conflicted, "round %d", round)
		assertNoOverlap(t, f.reservations)
	}
}

func TestCreate_ConcurrentDisjointAllSucceed(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	base := interval.MustParseDate("2024-01-01")
	for i := 0; i < 20; i++ {
		for _, spot := range []string{spotID, "spot-2"} {
			wg.Add(1)
			go func(i int, spot string) {
				defer wg.Done()
				start := base.AddDays(i * 3)
				_, err := f.svc.Create(context.Background(), model.BookingRequest{
					SpotID:      spot,
					RequesterID: renterID,
					Period:      interval.Range{Start: start, End: start.AddDays(3)},
				})
				errs <- err
			}(i, spot)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	all := f.reservations.All()
	assert.Len(t, all[spotID], 20)
	assert.Len(t, all["spot-2"], 20)
	assertNoOverlap(t, f.reservations)
}

func TestCreate_ConcurrentRandomizedKeepsInvariant(t *testing.T) {
	f := newFixture(t)
	base := interval.MustParseDate("2024-09-01")

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := base.AddDays((i * 7) % 30)
			_, err := f.svc.Create(context.Background(), model.BookingRequest{
				SpotID:      spotID,
				RequesterID: fmt.Sprintf("renter-%d", i),
				Period:      interval.Range{Start: start, End: start.AddDays(1 + i%4)},
			})
			if err != nil && !errors.Is(err, bookingserrors.ErrDateConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.NotEmpty(t, f.reservations.All()[spotID])
	assertNoOverlap(t, f.reservations)
}

type blockingLocker struct{}

func (blockingLocker) Lock(ctx context.Context, _ string) (lock.Unlock, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCreate_LockWaitTimesOut(t *testing.T) {
	cfg := &config.Config{Log: logger.Discard()}
	svc := NewBookingService(
		repository.NewMemoryReservationRepository(),
		repository.NewMemorySpotRepository(model.Spot{ID: spotID, OwnerID: ownerID}),
		repository.NewMemoryUserRepository(),
		blockingLocker{},
		&recordingPublisher{},
		metrics.Nop(),
		cfg,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := svc.Create(ctx, request(spotID, renterID, "2024-03-10", "2024-03-15"))
	requireAppError(t, err, apperrors.CodeTimeout, apperrors.Timeout("").HTTPStatus)
}

type failingReservations struct {
	*repository.MemoryReservationRepository
	createErr error
}

func (f *failingReservations) Create(context.Context, *model.Reservation) error {
	return f.createErr
}

func (f *failingReservations) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func TestCreate_StorageFailureIsInternal(t *testing.T) {
	cfg := &config.Config{Log: logger.Discard()}
	repo := &failingReservations{
		MemoryReservationRepository: repository.NewMemoryReservationRepository(),
		createErr:                   errors.New("disk full"),
	}
	svc := NewBookingService(
		repo,
		repository.NewMemorySpotRepository(model.Spot{ID: spotID, OwnerID: ownerID}),
		repository.NewMemoryUserRepository(),
		lock.NewKeyedMutex(),
		&recordingPublisher{},
		metrics.Nop(),
		cfg,
	)

	_, err := svc.Create(context.Background(), request(spotID, renterID, "2024-03-10", "2024-03-15"))
	requireAppError(t, err, apperrors.CodeInternal, http.StatusInternalServerError)
}

func TestList_OwnerSeesFullDetail(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Create(context.Background(), request(spotID, renterID, "2024-03-10", "2024-03-15"))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), request(spotID, "ghost", "2024-03-01", "2024-03-05"))
	require.NoError(t, err)

	views, err := f.svc.List(context.Background(), spotID, ownerID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, first.ID, views[0].ID)
	assert.Equal(t, renterID, views[0].UserID)
	require.NotNil(t, views[0].User)
	assert.Equal(t, "Ada", views[0].User.FirstName)
	require.NotNil(t, views[0].CreatedAt)

	// insertion order, not date order
	assert.Equal(t, "ghost", views[1].UserID)
	assert.Nil(t, views[1].User)
}

func TestList_NonOwnerSeesDatesOnly(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), request(spotID, renterID, "2024-03-10", "2024-03-15"))
	require.NoError(t, err)

	for _, requester := range []string{renterID, otherID, ""} {
		views, err := f.svc.List(context.Background(), spotID, requester)
		require.NoError(t, err)
		require.Len(t, views, 1)

		assert.Empty(t, views[0].ID)
		assert.Empty(t, views[0].UserID)
		assert.Nil(t, views[0].User)

		body, err := json.Marshal(views)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"spotId":"spot-1","startDate":"2024-03-10","endDate":"2024-03-15"}]`, string(body))
	}
}

func TestList_EmptyAndMissingSpot(t *testing.T) {
	f := newFixture(t)

	views, err := f.svc.List(context.Background(), "spot-2", otherID)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)

	_, err = f.svc.List(context.Background(), "missing", otherID)
	requireAppError(t, err, bookingserrors.CodeSpotNotFound, http.StatusNotFound)
}

// lateLocker grants the lock only after the caller's context has ended.
type lateLocker struct {
	cancel context.CancelFunc
}

func (l lateLocker) Lock(context.Context, string) (lock.Unlock, error) {
	l.cancel()
	return func() {}, nil
}

func TestCreate_LockGrantedAfterDeadlineDoesNotCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reservations := repository.NewMemoryReservationRepository()
	svc := NewBookingService(
		reservations,
		repository.NewMemorySpotRepository(model.Spot{ID: spotID, OwnerID: ownerID}),
		repository.NewMemoryUserRepository(),
		lateLocker{cancel: cancel},
		&recordingPublisher{},
		metrics.Nop(),
		&config.Config{Log: logger.Discard()},
	)

	_, err := svc.Create(ctx, request(spotID, renterID, "2024-03-10", "2024-03-15"))
	requireAppError(t, err, apperrors.CodeTimeout, apperrors.Timeout("").HTTPStatus)
	assert.Empty(t, reservations.All()[spotID])
}

// cancellingReservations ends the request right after the reservation is
// written, as a client hanging up at that moment would.
type cancellingReservations struct {
	*repository.MemoryReservationRepository
	cancel context.CancelFunc
}

func (c *cancellingReservations) Create(ctx context.Context, r *model.Reservation) error {
	err := c.MemoryReservationRepository.Create(ctx, r)
	c.cancel()
	return err
}

type ctxPublisher struct {
	err         error
	hasDeadline bool
}

func (p *ctxPublisher) BookingCreated(ctx context.Context, _ *model.Reservation) error {
	p.err = ctx.Err()
	_, p.hasDeadline = ctx.Deadline()
	return p.err
}

func TestCreate_PublishOutlivesRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &cancellingReservations{
		MemoryReservationRepository: repository.NewMemoryReservationRepository(),
		cancel:                      cancel,
	}
	pub := &ctxPublisher{}
	svc := NewBookingService(
		repo,
		repository.NewMemorySpotRepository(model.Spot{ID: spotID, OwnerID: ownerID}),
		repository.NewMemoryUserRepository(),
		lock.NewKeyedMutex(),
		pub,
		metrics.Nop(),
		&config.Config{Log: logger.Discard()},
	)

	r, err := svc.Create(ctx, request(spotID, renterID, "2024-03-10", "2024-03-15"))
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Error(t, ctx.Err())

	assert.NoError(t, pub.err, "publish should not inherit the request's cancellation")
	assert.True(t, pub.hasDeadline, "publish should be bounded")
	assert.Len(t, repo.All()[spotID], 1)
}

func TestList_OwnerViewWritesNullRenter(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), request(spotID, "ghost", "2024-03-01", "2024-03-05"))
	require.NoError(t, err)

	views, err := f.svc.List(context.Background(), spotID, ownerID)
	require.NoError(t, err)
	require.Len(t, views, 1)

	body, err := json.Marshal(views)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded, 1)
	user, present := decoded[0]["User"]
	assert.True(t, present, "owner view must carry the User key: %s", body)
	assert.Nil(t, user)
	assert.Equal(t, "ghost", decoded[0]["userId"])
}
