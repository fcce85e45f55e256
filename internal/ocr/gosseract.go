package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
	log "github.com/sirupsen/logrus"
)

// NewGosseract returns a recognizer backed by libtesseract.
func NewGosseract(opts Options) Recognizer {
	opts = opts.withDefaults()
	logger := log.StandardLogger()
	return &recognizer{
		name: "gosseract",
		opts: opts,
		log:  logger,
		read: func(ctx context.Context, path string) (string, error) {
			return gosseractText(ctx, logger, opts, path)
		},
	}
}

type ocrResult struct {
	text string
	err  error
}

// gosseractText cannot interrupt libtesseract, so a timeout abandons the
// call and lets the goroutine finish on its own.
func gosseractText(ctx context.Context, logger log.FieldLogger, opts Options, path string) (string, error) {
	done := make(chan ocrResult, 1)
	go func() {
		text, err := runGosseract(logger, opts, path)
		done <- ocrResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func runGosseract(logger log.FieldLogger, opts Options, path string) (string, error) {
	// Create a new Tesseract client.
	client := gosseract.NewClient()
	defer func() {
		if err := client.Close(); err != nil {
			logger.WithFields(log.Fields{"error": err}).Error("Error closing Tesseract client")
		}
	}()

	if err := client.SetTessdataPrefix(opts.TessdataDir); err != nil {
		return "", err
	}
	if err := client.SetLanguage(opts.Language); err != nil {
		return "", err
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", err
	}
	if err := client.SetImage(path); err != nil {
		return "", err
	}

	return client.Text()
}
