package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/doodle"
	"github.com/GoCodeAlone/doodle/events"
)

type testHost struct{}

func (testHost) Logger() doodle.Logger          { return testLogger{} }
func (testHost) State() doodle.ApplicationState { return doodle.StateUninitialized }
func (testHost) Stats() doodle.Stats            { return doodle.Stats{} }
func (testHost) Events() *events.Dispatcher     { return events.NewDispatcher() }
func (testHost) Terminate()                     {}

type testLogger struct{}

func (testLogger) Info(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Debug(string, ...any) {}

func TestAddBeforeInit(t *testing.T) {
	w := New()
	assert.ErrorIs(t, w.Add(t.TempDir()), ErrNotStarted)
	assert.Nil(t, w.WatchList())
	assert.NoError(t, w.Stop(context.Background()))
}

func TestInitFailsOnMissingPath(t *testing.T) {
	w := New(WithPaths(filepath.Join(t.TempDir(), "missing")))
	assert.Error(t, w.Init(context.Background(), testHost{}))
}

func TestChangesDeliveredDuringUpdate(t *testing.T) {
	dir := t.TempDir()
	var changes []Change
	w := New(WithPaths(dir), WithHandler(func(_ context.Context, c Change) error {
		changes = append(changes, c)
		return nil
	}))
	require.NoError(t, w.Init(context.Background(), testHost{}))
	t.Cleanup(func() { require.NoError(t, w.Stop(context.Background())) })

	assert.Equal(t, []string{dir}, w.WatchList())

	target := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(target, []byte("title: Doodle\n"), 0o600))

	frame := uint64(0)
	require.Eventually(t, func() bool {
		frame++
		if err := w.Update(context.Background(), doodle.Frame{Index: frame}); err != nil {
			return false
		}
		for _, c := range changes {
			if c.Path == target && c.Op.Has(fsnotify.Create) {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestChangesCoalescePerPath(t *testing.T) {
	w := New()
	now := time.Now()
	w.record(fsnotify.Event{Name: "a", Op: fsnotify.Create}, now)
	w.record(fsnotify.Event{Name: "a", Op: fsnotify.Write}, now.Add(time.Millisecond))
	w.record(fsnotify.Event{Name: "b", Op: fsnotify.Remove}, now)

	var got []Change
	w.handlers = append(w.handlers, func(_ context.Context, c Change) error {
		got = append(got, c)
		return errors.New("ignored")
	})
	w.logger = testLogger{}

	require.NoError(t, w.Update(context.Background(), doodle.Frame{Index: 1}))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Path)
	assert.True(t, got[0].Op.Has(fsnotify.Create))
	assert.True(t, got[0].Op.Has(fsnotify.Write))
	assert.Equal(t, now.Add(time.Millisecond), got[0].Time)
	assert.Equal(t, "b", got[1].Path)

	got = nil
	require.NoError(t, w.Update(context.Background(), doodle.Frame{Index: 2}))
	assert.Empty(t, got)
}
