package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sentisense/internal/apperr"
	"sentisense/internal/store/memstore"
)

type recordingSender struct {
	mu       sync.Mutex
	sendErr  error
	sent     []Message
	enqueued []Message
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) Enqueue(msg Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, msg)
	return true
}

func TestContactSubmit(t *testing.T) {
	ctx := context.Background()
	quotas := memstore.NewQuotas()
	sender := &recordingSender{}
	svc := NewContactService(NewQuota(quotas, 10), NewComposer("support@sense.io"), sender, zap.NewNop())

	require.NoError(t, svc.Submit(ctx, "c@x.com", "Hello", "Is there an API?"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "support@sense.io", sender.sent[0].To)
	assert.Equal(t, "Hello - From: c@x.com", sender.sent[0].Subject)
	assert.Equal(t, "Is there an API?", sender.sent[0].Text)
	assert.Equal(t, "c@x.com", sender.sent[0].ReplyTo)

	require.Len(t, sender.enqueued, 1)
	assert.Equal(t, "c@x.com", sender.enqueued[0].To)
	assert.Equal(t, SubjectAutoReply, sender.enqueued[0].Subject)

	q, err := quotas.Get(ctx, "c@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, q.EmailsSentToday)
}

func TestContactSubmitRateLimited(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	svc := NewContactService(NewQuota(memstore.NewQuotas(), 10), NewComposer("support@sense.io"), sender, zap.NewNop())

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.Submit(ctx, "c@x.com", "Hi", "body"))
	}
	err := svc.Submit(ctx, "c@x.com", "Hi", "body")

	assert.True(t, apperr.Is(err, apperr.KindRateLimited))
	assert.Len(t, sender.sent, 10)
}

func TestContactSubmitTransportFailureDoesNotCount(t *testing.T) {
	ctx := context.Background()
	quotas := memstore.NewQuotas()
	sender := &recordingSender{sendErr: errors.New("resend returned 503")}
	svc := NewContactService(NewQuota(quotas, 10), NewComposer("support@sense.io"), sender, zap.NewNop())

	err := svc.Submit(ctx, "c@x.com", "Hi", "body")

	assert.True(t, apperr.Is(err, apperr.KindUpstream))
	assert.Empty(t, sender.enqueued)
	q, err := quotas.Get(ctx, "c@x.com")
	require.NoError(t, err)
	assert.Zero(t, q.EmailsSentToday)
}
