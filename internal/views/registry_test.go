package views_test

import (
	"context"
	"testing"
	"time"

	"packedit/internal/archive"
	"packedit/internal/backend"
	"packedit/internal/bus"
	"packedit/internal/errors"
	"packedit/internal/packedfile"
	"packedit/internal/views"
	"packedit/pkg/testutils"
	"packedit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	readme = types.ParsePath("text/readme.txt")
	units  = types.ParsePath("db/units_tables/data")
	icon   = types.ParsePath("ui/icon.png")
	model  = types.ParsePath("models/unit.rigid_model_v2")
)

// countingPoster records what the registry sends
type countingPoster struct {
	b      *bus.Bus
	counts map[string]int
}

func (p *countingPoster) Post(cmd bus.Command) *bus.Pending {
	p.counts[cmd.Name()]++
	return p.b.Post(cmd)
}

type env struct {
	bus    *bus.Bus
	queue  *views.Queue
	tk     *memToolkit
	poster *countingPoster
	reg    *views.Registry
	stop   func()
}

func newEnv(t *testing.T, opts ...views.Option) *env {
	t.Helper()
	a, err := archive.LoadDir(testutils.CreateTestPackFolder(t), packedfile.DefaultDetector())
	require.NoError(t, err)

	b := bus.New(8)
	stop := backend.New(a, b, nil, nil).Start(context.Background())
	t.Cleanup(stop)

	e := &env{
		bus:    b,
		queue:  views.NewQueue(),
		tk:     &memToolkit{},
		poster: &countingPoster{b: b, counts: map[string]int{}},
		stop:   stop,
	}
	e.reg = views.NewRegistry(e.poster, e.tk, e.queue, opts...)
	return e
}

// turn runs one turn of the presentation loop
func (e *env) turn(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.queue.RunOne(ctx), "no completion arrived")
}

func (e *env) open(t *testing.T, p types.Path) *views.View {
	t.Helper()
	var (
		got    *views.View
		gotErr error
	)
	e.reg.Open(p, func(v *views.View, err error) { got, gotErr = v, err })
	if got == nil && gotErr == nil {
		e.turn(t)
	}
	require.NoError(t, gotErr)
	require.NotNil(t, got)
	return got
}

func (e *env) save(t *testing.T, v *views.View) error {
	t.Helper()
	called := false
	var saveErr error
	e.reg.Save(v, func(err error) { called, saveErr = true, err })
	if !called {
		e.turn(t)
	}
	require.True(t, called)
	return saveErr
}

func (e *env) fetchText(t *testing.T, p types.Path) string {
	t.Helper()
	resp, err := e.bus.Send(bus.Fetch{Path: p})
	require.NoError(t, err)
	return resp.File.(*packedfile.Text).Contents
}

func TestOpenEditSave(t *testing.T) {
	e := newEnv(t)

	v := e.open(t, readme)
	assert.True(t, v.IsPreview())
	assert.False(t, v.IsDirty())
	assert.Equal(t, types.Text, v.Type())
	assert.Equal(t, "hello", textOf(v).text)
	assert.Equal(t, "~readme.txt", v.Title())

	textOf(v).Type("hello world")
	assert.True(t, v.IsDirty())
	assert.False(t, v.IsPreview(), "an edit promotes the preview")
	assert.Equal(t, "readme.txt *", v.Title())
	assert.Len(t, e.reg.Dirty(), 1)

	require.NoError(t, e.save(t, v))
	assert.False(t, v.IsDirty())
	assert.Empty(t, e.reg.Dirty())
	assert.Equal(t, 1, e.poster.counts["Commit"])

	assert.Equal(t, "hello world", e.fetchText(t, readme))
}

func TestCloseWithoutSaveLeavesArchive(t *testing.T) {
	e := newEnv(t)

	v := e.open(t, readme)
	textOf(v).Type("scratch")
	e.reg.Close(v)

	assert.True(t, v.IsClosed())
	assert.True(t, textOf(v).released)
	assert.Empty(t, e.reg.Views())
	_, ok := e.reg.Get(readme)
	assert.False(t, ok)
	assert.Zero(t, e.poster.counts["Commit"])

	assert.Equal(t, "hello", e.fetchText(t, readme))

	// edits on a closed surface are ignored
	textOf(v).Type("late")
	assert.Empty(t, e.reg.Dirty())
}

func TestOpenTwiceCommitsOnce(t *testing.T) {
	e := newEnv(t)

	var first, second *views.View
	e.reg.Open(readme, func(v *views.View, err error) { first = v })
	e.reg.Open(readme, func(v *views.View, err error) { second = v })
	assert.True(t, e.reg.Opening(readme))
	e.turn(t)

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, e.poster.counts["Fetch"])
	assert.Same(t, first, e.open(t, readme), "an open path is not fetched again")
	assert.Equal(t, 1, e.poster.counts["Fetch"])
	assert.Len(t, e.tk.texts, 1)

	e.reg.Pin(first)
	assert.False(t, first.IsPreview())
	textOf(first).Type("once")
	require.NoError(t, e.save(t, first))

	assert.Equal(t, 1, e.poster.counts["Commit"])
	assert.Equal(t, "once", e.fetchText(t, readme))
}

func TestSaveExtractionFailure(t *testing.T) {
	e := newEnv(t)

	v := e.open(t, readme)
	textOf(v).Type("edited")
	textOf(v).readErr = errors.New("surface gone")

	err := e.save(t, v)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.ExtractionError))
	assert.Contains(t, err.Error(), "surface gone")

	assert.Zero(t, e.poster.counts["Commit"], "no commit after a failed extraction")
	assert.True(t, v.IsDirty())
	assert.Equal(t, "hello", e.fetchText(t, readme))
}

func TestUnsupportedTypeShowsPlaceholder(t *testing.T) {
	e := newEnv(t)

	v := e.open(t, model)
	assert.Equal(t, types.Unknown, v.Type())
	assert.True(t, v.ReadOnly())
	require.Len(t, e.tk.holes, 1)
	assert.True(t, errors.IsUnsupportedType(e.tk.holes[0].reason))

	placeholder, ok := v.Payload().(*views.Placeholder)
	require.True(t, ok)
	assert.Equal(t, types.Unknown, placeholder.Type())

	err := e.save(t, v)
	assert.True(t, errors.IsUnsupportedType(err))
	assert.Zero(t, e.poster.counts["Commit"])
}

func TestOpenMissingEntry(t *testing.T) {
	e := newEnv(t)

	var gotErr error
	e.reg.Open(types.ParsePath("missing.bin"), func(v *views.View, err error) {
		assert.Nil(t, v)
		gotErr = err
	})
	e.turn(t)

	assert.True(t, errors.IsNotFound(gotErr))
	assert.Empty(t, e.reg.Views())
	assert.False(t, e.reg.Opening(types.ParsePath("missing.bin")))
}

func TestSinglePreview(t *testing.T) {
	t.Run("replaces clean preview", func(t *testing.T) {
		e := newEnv(t)
		first := e.open(t, readme)
		second := e.open(t, units)

		assert.True(t, first.IsClosed())
		assert.True(t, textOf(first).released)
		assert.Equal(t, []*views.View{second}, e.reg.Views())
	})

	t.Run("keeps pinned views", func(t *testing.T) {
		e := newEnv(t)
		first := e.open(t, readme)
		e.reg.Pin(first)
		second := e.open(t, units)
		third := e.open(t, icon)

		assert.False(t, first.IsClosed())
		assert.True(t, second.IsClosed())
		assert.Equal(t, []*views.View{first, third}, e.reg.Views())
	})

	t.Run("disabled", func(t *testing.T) {
		e := newEnv(t, views.WithSinglePreview(false))
		e.open(t, readme)
		e.open(t, units)
		assert.Len(t, e.reg.Views(), 2)
	})
}

func TestEditDuringSaveKeepsDirty(t *testing.T) {
	e := newEnv(t)
	v := e.open(t, readme)

	textOf(v).Type("first")
	var saveErr error
	e.reg.Save(v, func(err error) { saveErr = err })
	assert.True(t, v.IsSaving())
	textOf(v).Type("second")
	e.turn(t)

	require.NoError(t, saveErr)
	assert.False(t, v.IsSaving())
	assert.True(t, v.IsDirty(), "the second edit is not saved yet")
	assert.Equal(t, "first", e.fetchText(t, readme))
}

func TestCloseWhileCommitInFlight(t *testing.T) {
	e := newEnv(t)
	v := e.open(t, readme)

	textOf(v).Type("committed anyway")
	saved := false
	e.reg.Save(v, func(err error) { saved = err == nil })
	e.reg.Close(v)
	e.turn(t)

	assert.True(t, saved)
	assert.Empty(t, e.reg.Views(), "the response does not bring the view back")
	assert.Equal(t, "committed anyway", e.fetchText(t, readme))
}

func TestSaveClosedView(t *testing.T) {
	e := newEnv(t)
	v := e.open(t, readme)
	e.reg.Close(v)

	err := e.save(t, v)
	assert.True(t, errors.IsKind(err, errors.InvalidState))
	assert.Zero(t, e.poster.counts["Commit"])
}

func TestSaveAfterOwnerStopped(t *testing.T) {
	e := newEnv(t)
	v := e.open(t, readme)
	textOf(v).Type("lost")
	e.stop()

	err := e.save(t, v)
	assert.True(t, errors.IsBusClosed(err))
	assert.True(t, v.IsDirty())
}

func TestTableAndImageViews(t *testing.T) {
	e := newEnv(t, views.WithSinglePreview(false))

	table := e.open(t, units)
	assert.Equal(t, []string{"key", "name"}, tableOf(table).columns)
	tableOf(table).SetCell(0, 1, "Swordsmen")
	require.NoError(t, e.save(t, table))

	resp, err := e.bus.Send(bus.Fetch{Path: units})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"unit_a", "Swordsmen"}}, resp.File.(*packedfile.Table).Rows)

	img := e.open(t, icon)
	assert.True(t, img.ReadOnly())
	require.Len(t, e.tk.images, 1)
	assert.Equal(t, 2, e.tk.images[0].image.Width)
	require.NoError(t, e.save(t, img), "saving an image writes back the same bytes")
}
