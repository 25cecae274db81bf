package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-calendar/internal/model"
	"github.com/iliyamo/concert-calendar/internal/testutil"
)

func TestTicketCreateAndList(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	concerts := NewConcertRepo(db)
	users := NewUserRepo(db)
	tickets := NewTicketRepo(db)

	c := seedConcert(t, concerts, "T", "A", "V", time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC), 10)
	u := &model.User{Username: "alice", Email: "a@example.com", PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, u))

	insert := func(ref string, userID *uint64, qty int) {
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		tk := &model.Ticket{
			Reference:       ref,
			ConcertID:       c.ID,
			UserID:          userID,
			UserName:        "alice",
			Email:           "a@example.com",
			Quantity:        qty,
			TotalPriceCents: int64(qty) * c.PriceCents,
			PurchaseDate:    time.Now(),
		}
		require.NoError(t, tickets.CreateTx(ctx, tx, tk))
		require.NoError(t, tx.Commit())
		assert.NotZero(t, tk.ID)
	}
	insert("ref-1", nil, 2)
	insert("ref-2", &u.ID, 1)

	all, err := tickets.ListByConcert(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ref-1", all[0].Reference)
	assert.Nil(t, all[0].UserID)
	assert.Equal(t, 100.0, all[0].TotalPrice)

	mine, err := tickets.ListByConcertAndUser(ctx, c.ID, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].UserID)
	assert.Equal(t, u.ID, *mine[0].UserID)

	n, err := tickets.CountByConcert(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
