package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// NewCLI returns a recognizer that runs the tesseract binary at path.
func NewCLI(path string, opts Options) Recognizer {
	return newCLI(path, opts, execRunner)
}

func newCLI(path string, opts Options, run Runner) *recognizer {
	opts = opts.withDefaults()
	return &recognizer{
		name: "tesseract",
		opts: opts,
		log:  log.StandardLogger(),
		read: func(ctx context.Context, image string) (string, error) {
			out, err := run(ctx, path, CLIArgs(image, opts)...)
			if err != nil {
				return "", err
			}
			return string(out), nil
		},
	}
}

// CLIArgs returns the tesseract arguments that print the text of image to stdout.
func CLIArgs(image string, opts Options) []string {
	return []string{image, "-", "-l", opts.Language, "--tessdata-dir", opts.TessdataDir}
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
