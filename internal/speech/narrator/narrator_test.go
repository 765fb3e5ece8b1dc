package narrator

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parrot/internal/config"
	"parrot/internal/domain/fragment"
	"parrot/internal/speech/assembler"
	"parrot/internal/speech/cache"
	"parrot/internal/speech/tts"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeEngineServer answers every request with "<q>|" after a random delay
// and can be told to fail for one text.
type fakeEngineServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests map[string]int
	failOn   string
}

func newFakeEngineServer(t *testing.T) *fakeEngineServer {
	t.Helper()
	s := &fakeEngineServer{requests: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		s.mu.Lock()
		s.requests[q]++
		fail := s.failOn != "" && q == s.failOn
		s.mu.Unlock()

		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		if fail {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(q + "|"))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeEngineServer) failFor(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = text
}

func (s *fakeEngineServer) counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.requests))
	for k, v := range s.requests {
		out[k] = v
	}
	return out
}

func (s *fakeEngineServer) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

type fixture struct {
	narrator *Narrator
	store    *cache.Store
	server   *fakeEngineServer
	tempDir  string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	srv := newFakeEngineServer(t)

	engineCfg := tts.Config{
		Kind:     tts.EngineKindGoogle,
		Language: "en",
		TempDir:  t.TempDir(),
		Timeout:  5 * time.Second,
		BaseURL:  srv.URL,
	}
	engine, err := tts.NewEngine(engineCfg, testLogger())
	require.NoError(t, err)

	store, err := cache.Open(t.TempDir(), "", testLogger())
	require.NoError(t, err)
	asm := assembler.New(store, assembler.Native{}, testLogger())

	return &fixture{
		narrator: New(engine, engineCfg, asm, opts, testLogger()),
		store:    store,
		server:   srv,
		tempDir:  engineCfg.TempDir,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunAssemblesInSegmentOrder(t *testing.T) {
	text := "Hello, world. This is a test; of the ordering: across many fragments, one two three four five six"
	want := strings.Join(fragment.Texts(fragment.Segment(text, 12)), "|") + "|"

	for _, workers := range []int{1, 4, 16} {
		f := newFixture(t, Options{MaxLen: 12, Workers: workers})

		out, err := f.narrator.Run(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, f.store.Path(f.narrator.Key(text)), out)
		assert.Equal(t, want, readFile(t, out), "workers=%d", workers)
	}
}

func TestRunCacheHitSkipsFetch(t *testing.T) {
	f := newFixture(t, Options{})
	text := "Hello, world. This is a test"

	first, err := f.narrator.Run(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, 3, f.server.total())

	second, err := f.narrator.Run(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, f.server.total())
}

func TestRunBypassCacheRefetches(t *testing.T) {
	f := newFixture(t, Options{BypassCache: true})
	text := "Hello, world"

	_, err := f.narrator.Run(context.Background(), text)
	require.NoError(t, err)
	_, err = f.narrator.Run(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 4, f.server.total())
}

func TestRunFetchesDuplicateFragmentsOnce(t *testing.T) {
	f := newFixture(t, Options{Workers: 4})

	out, err := f.narrator.Run(context.Background(), "again, and, again, and, again")
	require.NoError(t, err)
	assert.Equal(t, "again|and|again|and|again|", readFile(t, out))
	assert.Equal(t, map[string]int{"again": 1, "and": 1}, f.server.counts())
}

func TestRunRemovesFragmentFiles(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.narrator.Run(context.Background(), "one, two")
	require.NoError(t, err)

	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunKeepFragments(t *testing.T) {
	f := newFixture(t, Options{KeepFragments: true})
	_, err := f.narrator.Run(context.Background(), "one, two")
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(f.tempDir, "tts_*.mp3"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestRunFetchFailureAborts(t *testing.T) {
	f := newFixture(t, Options{Workers: 1})
	f.server.failFor("two")

	text := "one, two, three"
	_, err := f.narrator.Run(context.Background(), text)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageFetch, se.Stage)
	assert.Equal(t, 2, se.Fragment)
	assert.ErrorIs(t, err, tts.ErrFetch)
	assert.Contains(t, err.Error(), "fetch fragment 2")

	assert.NoFileExists(t, f.store.Path(f.narrator.Key(text)))
	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "fetched fragments are cleaned up on failure")
}

func TestRunEmptyText(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.narrator.Run(context.Background(), "  \n ")
	require.ErrorIs(t, err, config.ErrConfig)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageValidate, se.Stage)
	assert.Zero(t, f.server.total())
}

func TestRunNothingToSay(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.narrator.Run(context.Background(), "... ,,, ;;")
	require.ErrorIs(t, err, ErrNothingToSay)
	assert.Zero(t, f.server.total())
}

func TestRunStrictDegenerateInput(t *testing.T) {
	f := newFixture(t, Options{MaxLen: 100, Strict: true})

	_, err := f.narrator.Run(context.Background(), strings.Repeat("a", 150))
	require.ErrorIs(t, err, fragment.ErrDegenerateInput)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageSegment, se.Stage)
	assert.Zero(t, f.server.total())
}

func TestRunHardCutsDegenerateInput(t *testing.T) {
	f := newFixture(t, Options{MaxLen: 100})

	out, err := f.narrator.Run(context.Background(), strings.Repeat("a", 150))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 100)+"|"+strings.Repeat("a", 50)+"|", readFile(t, out))
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.narrator.Run(ctx, "one, two")
	require.ErrorIs(t, err, context.Canceled)
}

func TestKeyDependsOnEngineConfig(t *testing.T) {
	a := New(nil, tts.Config{Kind: tts.EngineKindGoogle, Language: "en"}, nil, Options{}, testLogger())
	b := New(nil, tts.Config{Kind: tts.EngineKindGoogle, Language: "en", Voice: "x"}, nil, Options{}, testLogger())

	assert.Equal(t, a.Key("hi"), a.Key("hi"))
	assert.NotEqual(t, a.Key("hi"), b.Key("hi"))
	assert.Equal(t, cache.Fingerprint("google", "en", "", "hi"), a.Key("hi"))
}

type fakePlayer struct {
	played []string
	err    error
}

func (p *fakePlayer) Play(_ context.Context, path string) error {
	p.played = append(p.played, path)
	return p.err
}

func TestDeliverPlays(t *testing.T) {
	p := &fakePlayer{}
	require.NoError(t, Deliver(context.Background(), "/cache/a.mp3", "", p, testLogger()))
	assert.Equal(t, []string{"/cache/a.mp3"}, p.played)

	p.err = errors.New("no audio device")
	err := Deliver(context.Background(), "/cache/a.mp3", "", p, testLogger())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDeliver, se.Stage)
}

func TestDeliverCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "artifact.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio"), 0o644))

	p := &fakePlayer{}
	dst := filepath.Join(dir, "out.mp3")
	require.NoError(t, Deliver(context.Background(), src, dst, p, testLogger()))
	assert.Equal(t, "audio", readFile(t, dst))
	assert.Empty(t, p.played)

	err := Deliver(context.Background(), filepath.Join(dir, "missing.mp3"), dst, p, testLogger())
	require.Error(t, err)
}
