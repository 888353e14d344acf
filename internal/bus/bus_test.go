package bus_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"packedit/internal/bus"
	"packedit/internal/errors"
	"packedit/internal/log"
	"packedit/internal/packedfile"
	"packedit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoOwner answers every command with an Ack naming its target and records
// the order commands were received in.
type echoOwner struct {
	mu      sync.Mutex
	seen    []string
	started chan struct{}
	gate    chan struct{}
}

func (o *echoOwner) run(ctx context.Context, rx *bus.Receiver) {
	defer rx.Close()
	for {
		req, ok := rx.Next(ctx)
		if !ok {
			return
		}
		if o.started != nil {
			o.started <- struct{}{}
		}
		if o.gate != nil {
			<-o.gate
		}
		o.mu.Lock()
		o.seen = append(o.seen, req.Command().Target().String())
		o.mu.Unlock()
		req.Reply(bus.Response{Ack: &bus.Ack{Path: req.Command().Target()}})
	}
}

func (o *echoOwner) order() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.seen...)
}

func startEcho(t *testing.T, b *bus.Bus, owner *echoOwner) context.CancelFunc {
	t.Helper()
	rx, err := b.Receiver()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	go owner.run(ctx, rx)
	return cancel
}

func TestSendRoundTrip(t *testing.T) {
	b := bus.New(4)
	defer b.Close()
	cancel := startEcho(t, b, &echoOwner{})
	defer cancel()

	resp, err := b.Send(bus.Fetch{Path: types.ParsePath("text/readme.txt")})
	require.NoError(t, err)
	require.NotNil(t, resp.Ack)
	assert.Equal(t, "text/readme.txt", resp.Ack.Path.String())
}

func TestPostKeepsOrder(t *testing.T) {
	b := bus.New(2)
	defer b.Close()
	owner := &echoOwner{}
	cancel := startEcho(t, b, owner)
	defer cancel()

	var pendings []*bus.Pending
	var want []string
	for i := 0; i < 50; i++ {
		name := string(rune('a'+i%26)) + "/" + string(rune('0'+i/26))
		want = append(want, name)
		pendings = append(pendings, b.Post(bus.Commit{Path: types.ParsePath(name), File: packedfile.NewText(name)}))
	}
	for i, p := range pendings {
		_, err := p.Wait()
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), p.Seq())
	}
	assert.Equal(t, want, owner.order())
}

func TestPostDoesNotBlockWhenQueueIsFull(t *testing.T) {
	b := bus.New(1)
	defer b.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Post(bus.List{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Post blocked without a receiver")
	}
	assert.Equal(t, 100, b.Outstanding())
}

func TestSingleReceiver(t *testing.T) {
	b := bus.New(1)
	defer b.Close()

	_, err := b.Receiver()
	require.NoError(t, err)
	_, err = b.Receiver()
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.InvalidState))
}

func TestOwnerGoneFailsWithBusClosed(t *testing.T) {
	b := bus.New(4)
	owner := &echoOwner{}
	cancel := startEcho(t, b, owner)

	_, err := b.Send(bus.List{})
	require.NoError(t, err)

	cancel()
	<-b.Closed()

	resp, err := b.Send(bus.Fetch{Path: types.ParsePath("text/readme.txt")})
	require.Error(t, err)
	assert.True(t, errors.IsBusClosed(err))
	assert.Equal(t, err, resp.Err)
	assert.Zero(t, b.Outstanding())

	_, err = b.Receiver()
	assert.True(t, errors.IsBusClosed(err))
}

func TestCloseAbandonsQueuedButFinishesInFlight(t *testing.T) {
	b := bus.New(4)
	owner := &echoOwner{started: make(chan struct{}, 1), gate: make(chan struct{})}
	cancel := startEcho(t, b, owner)
	defer cancel()

	inFlight := b.Post(bus.Delete{Path: types.ParsePath("first")})
	// the owner has taken the first command and blocks on the gate
	<-owner.started
	queued := b.Post(bus.Delete{Path: types.ParsePath("second")})

	b.Close()

	_, err := queued.Wait()
	assert.True(t, errors.IsBusClosed(err), "queued command resolves as closed")

	close(owner.gate)
	resp, err := inFlight.Wait()
	require.NoError(t, err, "the command being handled still completes")
	assert.Equal(t, "first", resp.Ack.Path.String())
	assert.Equal(t, []string{"first"}, owner.order())
}

func TestPendingResponseAndDone(t *testing.T) {
	b := bus.New(1)
	defer b.Close()
	rx, err := b.Receiver()
	require.NoError(t, err)

	p := b.Post(bus.List{})
	_, ok := p.Response()
	assert.False(t, ok)
	assert.Equal(t, "List", p.Command().Name())

	req, ok := rx.Next(context.Background())
	require.True(t, ok)
	req.Reply(bus.Response{Entries: []types.EntryInfo{{Path: types.ParsePath("a")}}})

	<-p.Done()
	resp, ok := p.Response()
	require.True(t, ok)
	assert.Len(t, resp.Entries, 1)

	assert.Panics(t, func() { req.Reply(bus.Response{}) }, "exactly one reply per request")
}

func TestReceiverStopsOnContext(t *testing.T) {
	b := bus.New(1)
	defer b.Close()
	rx, err := b.Receiver()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := rx.Next(ctx)
	assert.False(t, ok)
}

func TestWatchdogWarns(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.WithOutput(&syncWriter{w: &buf}))
	defer log.Configure()

	b := bus.New(1, bus.WithWatchdog(5*time.Millisecond))
	defer b.Close()
	owner := &echoOwner{gate: make(chan struct{})}
	cancel := startEcho(t, b, owner)
	defer cancel()

	go func() {
		time.Sleep(40 * time.Millisecond)
		close(owner.gate)
	}()
	_, err := b.Send(bus.Fetch{Path: types.ParsePath("slow.txt")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Backend owner has not answered yet")
	assert.Contains(t, buf.String(), "command=Fetch")
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
