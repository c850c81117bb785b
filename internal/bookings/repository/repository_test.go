package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/pkg/interval"
	"spotbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservation(id, spot string, seq int64, start, end string) *model.Reservation {
	return &model.Reservation{
		ID:        id,
		SpotID:    spot,
		UserID:    "user-1",
		StartDate: interval.MustParseDate(start),
		EndDate:   interval.MustParseDate(end),
		Seq:       seq,
	}
}

func TestMemoryReservationRepository_InsertionOrder(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, reservation("b", "spot-1", 1, "2024-05-01", "2024-05-03")))
	require.NoError(t, repo.Create(ctx, reservation("a", "spot-1", 2, "2024-04-01", "2024-04-03")))
	require.NoError(t, repo.Create(ctx, reservation("c", "spot-2", 1, "2024-04-01", "2024-04-03")))

	got, err := repo.FindBySpot(ctx, "spot-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)

	got[0].ID = "mutated"
	again, _ := repo.FindBySpot(ctx, "spot-1")
	assert.Equal(t, "b", again[0].ID)

	none, err := repo.FindBySpot(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryReservationRepository_RejectsDuplicates(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, reservation("a", "spot-1", 1, "2024-05-01", "2024-05-03")))

	err := repo.Create(ctx, reservation("a", "spot-2", 1, "2024-06-01", "2024-06-03"))
	assert.ErrorIs(t, err, bookingserrors.ErrDuplicateReservation)

	err = repo.Create(ctx, reservation("b", "spot-1", 1, "2024-06-01", "2024-06-03"))
	assert.ErrorIs(t, err, bookingserrors.ErrDuplicateReservation)
}

func TestMemoryReservationRepository_GuardsArePerSpot(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := repo.BumpSpotGuard(ctx, "spot-1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := repo.BumpSpotGuard(ctx, "spot-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestMemoryReservationRepository_TransactionRunsFn(t *testing.T) {
	repo := NewMemoryReservationRepository()
	called := false
	err := repo.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestMemoryDirectories(t *testing.T) {
	spots := NewMemorySpotRepository(model.Spot{ID: "spot-1", OwnerID: "owner-1"})
	users := NewMemoryUserRepository()
	users.Put(model.User{ID: "user-1", FirstName: "Ada"})

	spot, err := spots.FindByID(context.Background(), "spot-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", spot.OwnerID)

	_, err = spots.FindByID(context.Background(), "spot-9")
	assert.ErrorIs(t, err, bookingserrors.ErrSpotNotFound)

	user, err := users.FindByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Renter().FirstName)

	_, err = users.FindByID(context.Background(), "user-9")
	assert.ErrorIs(t, err, bookingserrors.ErrUserNotFound)
}

const seedYAML = `
spots:
  - id: spot-1
    ownerId: owner-1
    name: "  Lake   cabin "
users:
  - id: " user-1 "
    firstName: Ada
    lastName: Lovelace
`

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Spots, 1)
	require.Len(t, seed.Users, 1)
	assert.Equal(t, "Lake cabin", seed.Spots[0].Name)
	assert.Equal(t, "user-1", seed.Users[0].ID)
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "spots: [::"},
		{"spot without owner", "spots:\n  - id: spot-1\n"},
		{"user without id", "users:\n  - firstName: Ada\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
