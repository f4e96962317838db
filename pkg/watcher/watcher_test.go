package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"one per line", "C1\nO2\n", []string{"C1", "O2"}},
		{"comments and blanks", "# bases\n\nN1\n  # skip\nC4\n", []string{"N1", "C4"}},
		{"same line", "C1 C2\tC3", []string{"C1", "C2", "C3"}},
		{"crlf", "C1\r\nC2\r\n", []string{"C1", "C2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadSelectionMissingFile(t *testing.T) {
	names, err := ReadSelection(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

// recorder collects SetSelection calls.
type recorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
	ch    chan []string
}

func newRecorder() *recorder { return &recorder{ch: make(chan []string, 16)} }

func (r *recorder) SetSelection(names ...string) error {
	r.mu.Lock()
	r.calls = append(r.calls, names)
	err := r.err
	r.mu.Unlock()
	r.ch <- names
	return err
}

func (r *recorder) next(t *testing.T) []string {
	t.Helper()
	select {
	case names := <-r.ch:
		return names
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for selection")
		return nil
	}
}

func TestWatchSelection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selection.txt")
	require.NoError(t, os.WriteFile(path, []byte("O\n"), 0o644))

	fw, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	fw.Start()

	rec := newRecorder()
	require.NoError(t, WatchSelection(fw, path, rec, nil))
	assert.Equal(t, []string{"O"}, rec.next(t), "applied on start")

	require.NoError(t, os.WriteFile(path, []byte("O\nB1\n"), 0o644))
	assert.Equal(t, []string{"O", "B1"}, rec.next(t))
}

func TestWatchSelectionReplacedByRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selection.txt")

	fw, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	fw.Start()

	rec := newRecorder()
	require.NoError(t, WatchSelection(fw, path, rec, nil))
	assert.Empty(t, rec.next(t), "missing file is an empty selection")

	tmp := filepath.Join(dir, "selection.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("H1\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	assert.Equal(t, []string{"H1"}, rec.next(t))
}

func TestWatchSelectionErrorsKeepWatching(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selection.txt")
	require.NoError(t, os.WriteFile(path, []byte("O\n"), 0o644))

	fw, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	fw.Start()

	rec := newRecorder()
	errs := make(chan error, 4)
	require.NoError(t, WatchSelection(fw, path, rec, func(err error) { errs <- err }))
	rec.next(t)

	rec.mu.Lock()
	rec.err = errors.New("no index")
	rec.mu.Unlock()
	require.NoError(t, os.WriteFile(path, []byte("C1\n"), 0o644))
	rec.next(t)
	select {
	case err := <-errs:
		assert.EqualError(t, err, "no index")
	case <-time.After(5 * time.Second):
		t.Fatal("error not reported")
	}

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()
	require.NoError(t, os.WriteFile(path, []byte("C2\n"), 0o644))
	assert.Equal(t, []string{"C2"}, rec.next(t))
}

func TestDebounceCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sel.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	fw, err := NewFileWatcher(200*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	fw.Start()

	var mu sync.Mutex
	count := 0
	fired := make(chan struct{}, 8)
	require.NoError(t, fw.Watch([]string{path}, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
		fired <- struct{}{}
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
	time.Sleep(400 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestUnwatchIgnoresLaterWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sel.txt")

	fw, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	fw.Start()

	fired := make(chan string, 4)
	require.NoError(t, fw.Watch([]string{path}, func(p string) { fired <- p }))
	require.NoError(t, fw.Unwatch(path))
	require.NoError(t, fw.Unwatch(path), "unwatching twice is a no-op")

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	select {
	case p := <-fired:
		t.Fatalf("unexpected callback for %s", p)
	case <-time.After(200 * time.Millisecond):
	}
}

// slowSelector takes a while per call and records how many calls overlap.
type slowSelector struct {
	delay   time.Duration
	active  atomic.Int32
	overlap atomic.Int32
	calls   chan []string
}

func (s *slowSelector) SetSelection(names ...string) error {
	if s.active.Add(1) > 1 {
		s.overlap.Add(1)
	}
	time.Sleep(s.delay)
	s.active.Add(-1)
	s.calls <- names
	return nil
}

func TestCallbacksDoNotOverlap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selection.txt")
	require.NoError(t, os.WriteFile(path, []byte("O\n"), 0o644))

	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	fw.Start()

	sel := &slowSelector{delay: 400 * time.Millisecond, calls: make(chan []string, 8)}
	require.NoError(t, WatchSelection(fw, path, sel, nil))
	<-sel.calls

	require.NoError(t, os.WriteFile(path, []byte("C1\n"), 0o644))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("C2\n"), 0o644))

	var last []string
	deadline := time.After(5 * time.Second)
	for len(last) == 0 || last[0] != "C2" {
		select {
		case last = <-sel.calls:
		case <-deadline:
			t.Fatalf("never saw the second save, last %v", last)
		}
	}
	assert.Zero(t, sel.overlap.Load(), "SetSelection ran concurrently with itself")
}

func TestCloseWaitsForRunningCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sel.txt")

	fw, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)
	fw.Start()

	started := make(chan struct{}, 1)
	var finished atomic.Bool
	require.NoError(t, fw.Watch([]string{path}, func(string) {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
	}))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never started")
	}
	require.NoError(t, fw.Close())
	assert.True(t, finished.Load(), "Close returned while a callback was running")
	assert.NoError(t, fw.Close(), "closing twice is a no-op")
}
