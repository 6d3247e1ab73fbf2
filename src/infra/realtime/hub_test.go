package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandai/arena/src/infra/realtime"
)

type recordingPeer struct {
	id   string
	fail bool

	mu  sync.Mutex
	got []any
}

func (p *recordingPeer) ID() string { return p.id }

func (p *recordingPeer) Send(ctx context.Context, msg any) error {
	if p.fail {
		return errors.New("broken pipe")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, msg)
	return nil
}

func (p *recordingPeer) Close(code int, reason string) error { return nil }

func TestHub_Broadcast(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub(nil)
	a := &recordingPeer{id: "a"}
	b := &recordingPeer{id: "b"}
	broken := &recordingPeer{id: "x", fail: true}

	hub.Join("game_1", a)
	hub.Join("game_1", b)
	hub.Join("game_1", broken)
	hub.Join("game_2", &recordingPeer{id: "c"})

	err := hub.Broadcast(ctx, "game_1", "hello")
	assert.Error(t, err)
	assert.Equal(t, []any{"hello"}, a.got)
	assert.Equal(t, []any{"hello"}, b.got)

	hub.Leave("game_1", broken)
	require.NoError(t, hub.Broadcast(ctx, "game_1", "again"))
	assert.Equal(t, 2, hub.Size("game_1"))

	require.NoError(t, hub.Broadcast(ctx, "nobody", "lost"))
}

// stalledPeer never completes a write before ctx is done.
type stalledPeer struct{ id string }

func (p stalledPeer) ID() string { return p.id }

func (p stalledPeer) Send(ctx context.Context, msg any) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p stalledPeer) Close(code int, reason string) error { return nil }

func TestHub_StalledPeerDoesNotHoldBackOthers(t *testing.T) {
	hub := realtime.NewHub(nil)
	fast := &recordingPeer{id: "a"}
	hub.Join("game_1", stalledPeer{id: "slow"})
	hub.Join("game_1", fast)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := hub.Broadcast(ctx, "game_1", "tick")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []any{"tick"}, fast.got)
}

func TestHub_Notify(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub(nil)
	tab1 := &recordingPeer{id: "tab-1"}
	tab2 := &recordingPeer{id: "tab-2"}
	hub.Join(realtime.UserGroup("alice"), tab1)
	hub.Join(realtime.UserGroup("alice"), tab2)

	require.NoError(t, hub.Notify(ctx, "alice", "ping"))
	assert.Len(t, tab1.got, 1)
	assert.Len(t, tab2.got, 1)

	hub.Leave(realtime.UserGroup("alice"), tab1)
	hub.Leave(realtime.UserGroup("alice"), tab2)
	assert.Zero(t, hub.Size(realtime.UserGroup("alice")))
}
