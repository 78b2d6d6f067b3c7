package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soundscene/soundscene/pkg/audio/pcm"
	"github.com/soundscene/soundscene/pkg/scene"
	"github.com/soundscene/soundscene/pkg/storage"
)

// newTestStore writes raw L16 clips into a local store rooted at a temp
// directory. Clip values are constant so placement is easy to assert.
func newTestStore(t *testing.T, clips map[string][]int16) storage.FileStore {
	t.Helper()
	dir := t.TempDir()
	for path, samples := range clips {
		full := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, pcm.EncodeL16(samples), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func constSamples(n int, v int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestRenderPlacesClip(t *testing.T) {
	store := newTestStore(t, map[string][]int16{
		"s1/a.pcm": constSamples(1600, 100), // 100ms at 16k
	})
	r := New(store, pcm.L16Mono16K)

	segs := []scene.Segment{{
		Start:   50 * time.Millisecond,
		End:     150 * time.Millisecond,
		Channel: 1,
		Kind:    scene.KindFile,
		Path:    "s1/a.pcm",
		Rate:    16000,
	}}
	buf, err := r.Render(context.Background(), segs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Samples() != 2400 {
		t.Fatalf("buffer has %d samples, want 2400", buf.Samples())
	}

	ch := buf.Channel(1)
	if ch[799] != 0 || ch[800] != 100 || ch[2399] != 100 {
		t.Errorf("clip not placed at [800, 2400): boundary samples %d %d %d", ch[799], ch[800], ch[2399])
	}
	for i, s := range buf.Channel(0) {
		if s != 0 {
			t.Fatalf("channel 0 sample %d is %d, want silence", i, s)
		}
	}
}

func TestRenderHonorsClipOffset(t *testing.T) {
	clip := make([]int16, 1600)
	for i := range clip {
		clip[i] = int16(i)
	}
	store := newTestStore(t, map[string][]int16{"c.pcm": clip})
	r := New(store, pcm.L16Mono16K)

	segs := []scene.Segment{{
		End:        50 * time.Millisecond,
		Kind:       scene.KindFile,
		Path:       "c.pcm",
		ClipOffset: 25 * time.Millisecond, // 400 samples in
		Rate:       16000,
	}}
	buf, err := r.Render(context.Background(), segs, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := buf.Channel(0)[0]; got != 400 {
		t.Errorf("first sample is %d, want clip sample 400", got)
	}
}

func TestRenderZeroPadsShortClip(t *testing.T) {
	store := newTestStore(t, map[string][]int16{
		"short.pcm": constSamples(160, 77), // 10ms of material
	})
	r := New(store, pcm.L16Mono16K)

	segs := []scene.Segment{{
		End:  50 * time.Millisecond, // 800 samples wanted
		Kind: scene.KindFile,
		Path: "short.pcm",
		Rate: 16000,
	}}
	buf, err := r.Render(context.Background(), segs, 1)
	if err != nil {
		t.Fatal(err)
	}
	ch := buf.Channel(0)
	if ch[0] != 77 || ch[159] != 77 {
		t.Errorf("clip material missing: %d %d", ch[0], ch[159])
	}
	for i := 160; i < 800; i++ {
		if ch[i] != 0 {
			t.Fatalf("sample %d is %d, want zero padding", i, ch[i])
		}
	}
}

func TestRenderLaterSegmentOverwrites(t *testing.T) {
	store := newTestStore(t, map[string][]int16{
		"a.pcm": constSamples(800, 10),
		"b.pcm": constSamples(800, 20),
	})
	r := New(store, pcm.L16Mono16K)

	segs := []scene.Segment{
		{End: 50 * time.Millisecond, Kind: scene.KindFile, Path: "a.pcm", Rate: 16000},
		{Start: 25 * time.Millisecond, End: 75 * time.Millisecond, Kind: scene.KindFile, Path: "b.pcm", Rate: 16000},
	}
	buf, err := r.Render(context.Background(), segs, 1)
	if err != nil {
		t.Fatal(err)
	}
	ch := buf.Channel(0)
	if ch[0] != 10 || ch[399] != 10 {
		t.Errorf("head should be clip a: %d %d", ch[0], ch[399])
	}
	// Overlap region [400, 800) belongs to the later segment.
	if ch[400] != 20 || ch[799] != 20 || ch[1199] != 20 {
		t.Errorf("tail should be clip b: %d %d %d", ch[400], ch[799], ch[1199])
	}
}

func TestRenderResamplesForeignRateClip(t *testing.T) {
	store := newTestStore(t, map[string][]int16{
		"hi.pcm": constSamples(4800, 1000), // 100ms at 48k
	})
	r := New(store, pcm.L16Mono16K)

	segs := []scene.Segment{{
		End:  100 * time.Millisecond,
		Kind: scene.KindFile,
		Path: "hi.pcm",
		Rate: 48000,
	}}
	buf, err := r.Render(context.Background(), segs, 1)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Samples() != 1600 {
		t.Fatalf("buffer has %d samples, want 1600", buf.Samples())
	}
	// The converter's leading filter delay means the very start can ramp;
	// the middle of the span must carry the clip's DC level.
	mid := buf.Channel(0)[800]
	if mid < 500 || mid > 1500 {
		t.Errorf("mid-span sample %d, want near 1000", mid)
	}
}

func TestRenderNoiseIsDeterministic(t *testing.T) {
	store := newTestStore(t, nil)
	r := New(store, pcm.L16Mono16K)

	segs := []scene.Segment{{
		End:       100 * time.Millisecond,
		Kind:      scene.KindGenerator,
		Generator: &scene.GeneratorParams{
			Kind:    scene.GenNoise,
			LevelDB: -20,
			Seed:    42,
		},
	}}
	first, err := r.Render(context.Background(), segs, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Render(context.Background(), segs, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first.Channel(0) {
		if first.Channel(0)[i] != second.Channel(0)[i] {
			t.Fatalf("sample %d differs between identical renders", i)
		}
	}

	var nonZero int
	for _, s := range first.Channel(0) {
		if s != 0 {
			nonZero++
		}
	}
	if nonZero < 1000 {
		t.Errorf("only %d non-zero samples, expected audible noise", nonZero)
	}
}

func TestRenderRejectsBadTargets(t *testing.T) {
	store := newTestStore(t, nil)
	r := New(store, pcm.L16Mono16K)
	ctx := context.Background()

	cases := []struct {
		name string
		seg  scene.Segment
	}{
		{"channel out of range", scene.Segment{Channel: 2, End: time.Second, Kind: scene.KindFile, Path: "x", Rate: 16000}},
		{"negative channel", scene.Segment{Channel: -1, End: time.Second, Kind: scene.KindFile, Path: "x", Rate: 16000}},
		{"end before start", scene.Segment{Start: 2 * time.Second, End: time.Second, Kind: scene.KindFile, Path: "x", Rate: 16000}},
		{"file without rate", scene.Segment{End: time.Second, Kind: scene.KindFile, Path: "x"}},
		{"generator without params", scene.Segment{End: time.Second, Kind: scene.KindGenerator}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := r.Render(ctx, []scene.Segment{c.seg}, 2)
			var te *TargetError
			if !errors.As(err, &te) {
				t.Fatalf("expected TargetError, got %v", err)
			}
		})
	}
}

func TestRenderMissingClipFails(t *testing.T) {
	store := newTestStore(t, nil)
	r := New(store, pcm.L16Mono16K)

	segs := []scene.Segment{{
		End:  time.Second,
		Kind: scene.KindFile,
		Path: "ghost.pcm",
		Rate: 16000,
	}}
	_, err := r.Render(context.Background(), segs, 1)
	if err == nil {
		t.Fatal("expected error for missing clip")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestChannelCount(t *testing.T) {
	segs := []scene.Segment{
		{Channel: 0}, {Channel: 3}, {Channel: 1},
	}
	if got := ChannelCount(segs); got != 4 {
		t.Errorf("got %d, want 4", got)
	}
	if got := ChannelCount(nil); got != 0 {
		t.Errorf("got %d for empty list, want 0", got)
	}
}
