package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-calendar/internal/logger"
	"github.com/iliyamo/concert-calendar/internal/repository"
	"github.com/iliyamo/concert-calendar/internal/service"
	"github.com/iliyamo/concert-calendar/internal/testutil"
)

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
concerts:
  - title: Summer Fest
    artist: Band A
    date: "2024-07-15"
    time: "19:00"
    venue: Arena
    price: 49.99
    available_seats: 100
  - title: Later
    artist: Band B
    in_days: 3
    time: "20:00"
    venue: Club
    price: 10
    available_seats: 5
`), 0o644))

	items, err := loadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "2024-07-15", items[0].Date)
	assert.Equal(t, 49.99, items[0].Price)
	assert.Equal(t, 3, items[1].InDays)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("concerts: []\n"), 0o644))
	_, err = loadSeedFile(empty)
	assert.Error(t, err)
}

func TestSeedConcertsDefaultSet(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := repository.NewConcertRepo(db)
	svc := service.NewConcertService(repo, nil, logger.Discard())
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	n, err := seedConcerts(context.Background(), svc, defaultSeed(), now, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	july, err := svc.ListConcerts(context.Background(), 2024, 7, "")
	require.NoError(t, err)
	require.Len(t, july, 3)
	assert.Equal(t, 6, july[0].Date.Day())
	assert.Equal(t, int64(1500000), july[0].PriceCents)
	assert.Equal(t, 16, july[2].Date.Day())
}

func TestSeedConcertsStopsOnInvalidEntry(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := service.NewConcertService(repository.NewConcertRepo(db), nil, logger.Discard())

	items := []seedConcert{
		{Title: "ok", Artist: "a", Date: "2024-07-01", Time: "19:00", Venue: "v", Price: 1, AvailableSeats: 1},
		{Title: "bad", Artist: "a", Date: "2024-07-01", Time: "25:00", Venue: "v", Price: 1, AvailableSeats: 1},
	}
	n, err := seedConcerts(context.Background(), svc, items, time.Now(), logger.Discard())
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, service.ErrValidation)
}
