package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentisense/internal/apperr"
	"sentisense/internal/store/memstore"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestQuotaDailyLimitAndReset(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewQuotas()
	c := &clock{t: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)}
	q := NewQuota(store, 10)
	q.now = c.now

	for i := 0; i < 10; i++ {
		current, err := q.Allow(ctx, "c@x.com")
		require.NoError(t, err, "send %d", i+1)
		require.NoError(t, q.Record(ctx, current))
	}

	_, err := q.Allow(ctx, "c@x.com")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindRateLimited))
	assert.Equal(t, "You've reached the daily limit of 10 emails.", apperr.Detail(err))

	c.t = c.t.Add(24 * time.Hour)
	current, err := q.Allow(ctx, "c@x.com")
	require.NoError(t, err)
	assert.Zero(t, current.EmailsSentToday)
	require.NoError(t, q.Record(ctx, current))

	stored, err := store.Get(ctx, "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EmailsSentToday)
}

func TestQuotaResetsOnCalendarDayNotElapsedTime(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 3, 4, 23, 50, 0, 0, time.UTC)}
	q := NewQuota(memstore.NewQuotas(), 1)
	q.now = c.now

	current, err := q.Allow(ctx, "late@x.com")
	require.NoError(t, err)
	require.NoError(t, q.Record(ctx, current))

	c.t = c.t.Add(20 * time.Minute)
	_, err = q.Allow(ctx, "late@x.com")
	assert.NoError(t, err)
}

func TestQuotaIsPerAddress(t *testing.T) {
	ctx := context.Background()
	q := NewQuota(memstore.NewQuotas(), 1)

	current, err := q.Allow(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, q.Record(ctx, current))

	_, err = q.Allow(ctx, "a@x.com")
	assert.Error(t, err)
	_, err = q.Allow(ctx, "b@x.com")
	assert.NoError(t, err)
}
