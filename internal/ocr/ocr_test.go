package ocr

import (
	"context"
	"errors"
	"image/color"
	"os"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
)

func newTestCLI(t *testing.T, run Runner) (*recognizer, *[]string) {
	t.Helper()
	var seen []string
	r := newCLI("/usr/bin/tesseract", Options{Timeout: time.Second}, func(ctx context.Context, name string, args ...string) ([]byte, error) {
		seen = append(seen, args[0])
		_, err := os.Stat(args[0])
		require.NoError(t, err, "temp image must exist while the engine runs")
		return run(ctx, name, args...)
	})
	r.tempDir = t.TempDir()
	return r, &seen
}

func assertRemoved(t *testing.T, paths []string) {
	t.Helper()
	require.NotEmpty(t, paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, errors.Is(err, os.ErrNotExist), "temp file %s left behind", p)
	}
}

func TestCLIRecognize(t *testing.T) {
	r, seen := newTestCLI(t, func(_ context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "/usr/bin/tesseract", name)
		assert.Equal(t, CLIArgs(args[0], Options{Language: DefaultLanguage, TessdataDir: DefaultTessdataDir}), args)
		return []byte("2021-06-15 08:30:00\nBUCK RIDGE\n"), nil
	})

	text, err := r.Recognize(context.Background(), imaging.New(520, 120, color.White))
	require.NoError(t, err)
	assert.Equal(t, "2021-06-15 08:30:00\nBUCK RIDGE\n", text)
	assertRemoved(t, *seen)
}

func TestCLIRecognizeFailures(t *testing.T) {
	tests := []struct {
		name string
		run  Runner
	}{
		{"engine error", func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		}},
		{"empty output", func(context.Context, string, ...string) ([]byte, error) {
			return nil, nil
		}},
		{"whitespace output", func(context.Context, string, ...string) ([]byte, error) {
			return []byte(" \n\t\n"), nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, seen := newTestCLI(t, tt.run)
			_, err := r.Recognize(context.Background(), imaging.New(10, 10, color.White))
			require.Error(t, err)
			assert.Equal(t, failure.Recognition, failure.KindOf(err))
			assertRemoved(t, *seen)
		})
	}
}

func TestRecognizeTimeout(t *testing.T) {
	r, seen := newTestCLI(t, func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r.opts.Timeout = 10 * time.Millisecond

	_, err := r.Recognize(context.Background(), imaging.New(10, 10, color.White))
	require.Error(t, err)
	assert.Equal(t, failure.Recognition, failure.KindOf(err))
	assert.Contains(t, err.Error(), "timed out")
	assertRemoved(t, *seen)
}

func TestRecognizeEmptyImage(t *testing.T) {
	r, seen := newTestCLI(t, func(context.Context, string, ...string) ([]byte, error) {
		return []byte("x"), nil
	})
	_, err := r.Recognize(context.Background(), imaging.New(0, 0, color.White))
	assert.Equal(t, failure.Recognition, failure.KindOf(err))
	assert.Empty(t, *seen)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, DefaultLanguage, o.Language)
	assert.Equal(t, DefaultTessdataDir, o.TessdataDir)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	o = Options{Language: "deu", TessdataDir: "/td", Timeout: time.Minute}.withDefaults()
	assert.Equal(t, []string{"img.png", "-", "-l", "deu", "--tessdata-dir", "/td"}, CLIArgs("img.png", o))
}
