package sorter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
	"github.com/briancolinger/trail-cam-sorter/internal/metadata"
	"github.com/briancolinger/trail-cam-sorter/internal/pipeline"
)

// fakeResolver answers by base name; unknown files are exhausted.
type fakeResolver struct {
	byName map[string]metadata.TrailCamMetadata
	calls  []string
}

func (f *fakeResolver) Resolve(_ context.Context, source string) (pipeline.Resolution, error) {
	f.calls = append(f.calls, filepath.Base(source))
	md, ok := f.byName[filepath.Base(source)]
	if !ok {
		return pipeline.Resolution{}, pipeline.ErrFramesExhausted
	}
	return pipeline.Resolution{Metadata: md, Frame: 1, Attempts: 1}, nil
}

func at(cam string, sec int) metadata.TrailCamMetadata {
	return metadata.TrailCamMetadata{
		Timestamp:  time.Date(2022, 3, 4, 5, 6, sec, 0, time.UTC),
		CameraName: cam,
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func newTestSorter(t *testing.T, params Params, r Resolver, opts ...Option) (*Sorter, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	return New(params, r, append([]Option{WithLogger(logger)}, opts...)...), hook
}

func TestRunMovesFiles(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	touch(t, filepath.Join(in, "card", "DCIM", "a.AVI"))
	touch(t, filepath.Join(in, "card", "DCIM", "b.avi"))
	touch(t, filepath.Join(in, "card", "notes.txt"))

	r := &fakeResolver{byName: map[string]metadata.TrailCamMetadata{
		"a.AVI": at("CAM1", 7),
		"b.avi": at("CAM1", 7),
	}}
	s, _ := newTestSorter(t, Params{InputDir: in, OutputDir: out}, r)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 2, Moved: 2}, sum)

	day := filepath.Join(out, "CAM1", "2022-03-04")
	assert.FileExists(t, filepath.Join(day, "CAM1-2022-03-04-05-06-07.avi"))
	assert.FileExists(t, filepath.Join(day, "CAM1-2022-03-04-05-06-07-1.avi"))
	assert.NoDirExists(t, filepath.Join(in, "card", "DCIM"))
	assert.FileExists(t, filepath.Join(in, "card", "notes.txt"))
}

func TestRunDryRunLeavesFiles(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	src := filepath.Join(in, "sub", "a.mp4")
	junk := filepath.Join(in, "sub", ".DS_Store")
	touch(t, src)
	touch(t, junk)

	r := &fakeResolver{byName: map[string]metadata.TrailCamMetadata{"a.mp4": at("CAM2", 0)}}
	s, hook := newTestSorter(t, Params{InputDir: in, OutputDir: out, DryRun: true}, r)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Moved)
	assert.FileExists(t, src)
	assert.FileExists(t, junk)
	assert.NoDirExists(t, out)

	var skipped bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Skip renaming file" {
			skipped = true
			assert.Equal(t, src, e.Data["src"])
		}
	}
	assert.True(t, skipped)
}

func TestRunDeletesJunk(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	junk := filepath.Join(in, "sub", "Thumbs.db")
	touch(t, junk)
	touch(t, filepath.Join(in, "sub", "a.mp4"))

	s, _ := newTestSorter(t, Params{InputDir: in, OutputDir: filepath.Join(root, "out")}, &fakeResolver{})
	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, junk)
}

func TestRunSkipsUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	bad := filepath.Join(in, "x", "bad.mp4")
	touch(t, bad)
	touch(t, filepath.Join(in, "x", "good.mp4"))

	r := &fakeResolver{byName: map[string]metadata.TrailCamMetadata{"good.mp4": at("CAM3", 1)}}
	s, hook := newTestSorter(t, Params{InputDir: in, OutputDir: out}, r)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 2, Moved: 1, Skipped: 1}, sum)
	assert.FileExists(t, bad)

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Level == log.ErrorLevel && e.Data["path"] == bad {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestRunNaturalOrderAndLimit(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	for _, name := range []string{"10.mp4", "2.mp4", "1.mp4", "._1.mp4"} {
		touch(t, filepath.Join(in, name))
	}

	r := &fakeResolver{}
	s, _ := newTestSorter(t, Params{InputDir: in, OutputDir: filepath.Join(root, "out"), Limit: 2}, r)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, []string{"1.mp4", "2.mp4"}, r.calls)
}

func TestRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	placed := filepath.Join(out, "CAM1", "2022-03-04", "CAM1-2022-03-04-05-06-07.mp4")
	touch(t, placed)

	r := &fakeResolver{byName: map[string]metadata.TrailCamMetadata{filepath.Base(placed): at("CAM1", 7)}}
	s, _ := newTestSorter(t, Params{InputDir: out, OutputDir: out}, r)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Unchanged: 1}, sum)
	assert.FileExists(t, placed)
}

func TestRunSkipsNestedOutput(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(in, "sorted")
	touch(t, filepath.Join(out, "CAM1", "2022-03-04", "old.mp4"))
	touch(t, filepath.Join(in, "new.mp4"))

	r := &fakeResolver{}
	s, _ := newTestSorter(t, Params{InputDir: in, OutputDir: out}, r)

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"new.mp4"}, r.calls)
}

func TestRunMoveFailureIsFatal(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	touch(t, filepath.Join(in, "a.mp4"))
	touch(t, filepath.Join(in, "b.mp4"))

	r := &fakeResolver{byName: map[string]metadata.TrailCamMetadata{
		"a.mp4": at("CAM1", 1),
		"b.mp4": at("CAM1", 2),
	}}
	s, _ := newTestSorter(t, Params{InputDir: in, OutputDir: filepath.Join(root, "out")}, r)
	s.move = func(string, string) error { return errors.New("disk full") }

	sum, err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Rename))
	assert.Equal(t, 1, sum.Processed)
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	touch(t, filepath.Join(in, "a.mp4"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, _ := newTestSorter(t, Params{InputDir: in, OutputDir: filepath.Join(root, "out")}, &fakeResolver{})

	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParamsValidate(t *testing.T) {
	assert.ErrorIs(t, Params{OutputDir: "out"}.Validate(), errMissingInputDir)
	assert.ErrorIs(t, Params{InputDir: "in"}.Validate(), errMissingOutputDir)
	assert.NoError(t, Params{InputDir: "in", OutputDir: "out"}.Validate())
}

func TestWithin(t *testing.T) {
	assert.True(t, within("/a/b", "/a/b"))
	assert.True(t, within("/a/b", "/a/b/c"))
	assert.False(t, within("/a/b", "/a"))
	assert.False(t, within("/a/b", "/a/bc"))
	assert.True(t, within("/a/b", "/a/b/..c"))
}

func TestStatus(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })
	var buf bytes.Buffer
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewStatus(&buf, start)

	st.Sorted(1, 4, "in/a.mp4", "out/a.mp4", at("CAM1", 7), start.Add(3723*time.Second))
	got := buf.String()
	assert.Contains(t, got, "Progress: 1 of 4 (25.00%)")
	assert.Contains(t, got, "Camera Name: CAM1")
	assert.Contains(t, got, "Timestamp: 2022-03-04 05:06:07")
	assert.Contains(t, got, "Elapsed Time: 01:02:03")

	buf.Reset()
	st.Skipped(2, 4, "in/b.mp4", start)
	assert.True(t, strings.Contains(buf.String(), "Unprocessable: in/b.mp4"))

	var nilStatus *Status
	nilStatus.Sorted(1, 1, "", "", at("X", 0), start)
}

func TestWithLoggerKeepsRunID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := New(Params{InputDir: t.TempDir(), OutputDir: t.TempDir()}, &fakeResolver{},
		WithLogger(logger.WithField("run_id", "abc")))

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "abc", hook.LastEntry().Data["run_id"])

	s = New(Params{}, &fakeResolver{}, WithLogger(logger))
	assert.NotEmpty(t, s.log.Data["run_id"])
}

func TestRunPrunesWhenOutputIsInput(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "DCIM", "a.avi"))

	r := &fakeResolver{byName: map[string]metadata.TrailCamMetadata{"a.avi": at("CAM1", 7)}}
	s, _ := newTestSorter(t, Params{InputDir: root, OutputDir: root}, r)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Moved)
	assert.FileExists(t, filepath.Join(root, "CAM1", "2022-03-04", "CAM1-2022-03-04-05-06-07.avi"))
	assert.NoDirExists(t, filepath.Join(root, "DCIM"))
}
