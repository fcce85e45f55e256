// Package metadata turns raw OCR text into a validated timestamp and camera name.
package metadata

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/briancolinger/trail-cam-sorter/internal/failure"
)

// DefaultMaxAgeYears rejects timestamps older than this many years.
const DefaultMaxAgeYears = 41

// minLines is one line per region: timestamp, then camera name.
const minLines = 2

var (
	errTooFewLines     = errors.New("invalid OCR text")
	errBadTimestamp    = errors.New("failed to convert timestamp text to time")
	errTimestampRange  = errors.New("timestamp is out of range")
	errNoDate          = errors.New("timestamp has no date")
	errEmptyCameraName = errors.New("camera name is empty")
)

// Layouts printed by trail cameras, tried before general parsing.
var layouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"03:04PM 01/02/2006",
	"03:04 PM 01/02/2006",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 03:04:05PM",
	"01/02/2006 15:04:05",
	"02/01/2006 15:04:05",
	"15:04:05 01/02/2006",
	"03:04:05PM 01/02/2006",
}

var disallowed = regexp.MustCompile(`[^a-zA-Z0-9. ]`)

// TrailCamMetadata is the data burned into a trail camera frame.
type TrailCamMetadata struct {
	Timestamp  time.Time
	CameraName string
}

// Parser validates OCR output.
type Parser struct {
	Corrections Corrections
	MaxAgeYears int
	Location    *time.Location
	Now         func() time.Time
}

// NewParser returns a parser with the default age bound.
func NewParser(corrections Corrections) *Parser {
	return &Parser{
		Corrections: corrections,
		MaxAgeYears: DefaultMaxAgeYears,
		Location:    time.Local,
		Now:         time.Now,
	}
}

// Parse splits text into its timestamp and camera name lines and validates both.
func (p *Parser) Parse(text string) (TrailCamMetadata, error) {
	lines := Lines(text)
	if len(lines) < minLines {
		return TrailCamMetadata{}, failure.Newf(failure.Parse, "parse", "%w: got %d lines, want %d", errTooFewLines, len(lines), minLines)
	}

	ts, err := p.ValidateTimestamp(lines[0])
	if err != nil {
		return TrailCamMetadata{}, err
	}
	name, err := p.ValidateCameraName(lines[1])
	if err != nil {
		return TrailCamMetadata{}, err
	}

	return TrailCamMetadata{Timestamp: ts, CameraName: name}, nil
}

// Lines returns the trimmed, non-empty lines of text. Blank lines between
// fields are common in Tesseract output.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ValidateTimestamp parses s and rejects values older than the age bound.
// Future timestamps are accepted.
func (p *Parser) ValidateTimestamp(s string) (time.Time, error) {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}

	ts, err := parseTime(s, loc)
	if err != nil {
		return time.Time{}, failure.Newf(failure.Validation, "timestamp", "%w %q: %w", errBadTimestamp, s, err)
	}
	ts = ts.Truncate(time.Second)

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	years := p.MaxAgeYears
	if years <= 0 {
		years = DefaultMaxAgeYears
	}
	oldest := now().AddDate(-years, 0, 0)
	if ts.Before(oldest) {
		return time.Time{}, failure.Newf(failure.Validation, "timestamp", "%w: %s before %s", errTimestampRange, ts.Format(time.DateTime), oldest.Format(time.DateTime))
	}
	return ts, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	if !hasDate(s) {
		return time.Time{}, errNoDate
	}
	return dateparse.ParseIn(s, loc)
}

var (
	timeOfDay  = regexp.MustCompile(`(?i)\d{1,2}:\d{2}(:\d{2})?(\.\d+)?\s*([ap]\.?m\.?)?`)
	digitGroup = regexp.MustCompile(`\d+`)
	monthName  = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`)
)

// hasDate reports whether s still carries a year, month and day once the
// time of day is removed. OCR often drops half of the caption, and dateparse
// would happily read "08:30:00" or "2021" as a date.
func hasDate(s string) bool {
	rest := timeOfDay.ReplaceAllString(s, " ")
	groups := digitGroup.FindAllString(rest, -1)
	if len(groups) >= 3 {
		return true
	}
	return len(groups) >= 2 && monthName.MatchString(rest)
}

// Normalize upper-cases name and strips everything but letters, digits,
// dots and spaces.
func Normalize(name string) string {
	name = cases.Upper(language.Und).String(name)
	name = disallowed.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// ValidateCameraName normalizes name and applies the correction map.
func (p *Parser) ValidateCameraName(name string) (string, error) {
	normalized := Normalize(name)
	if strings.Trim(normalized, ". ") == "" {
		return "", failure.Newf(failure.Validation, "camera name", "%w: %q", errEmptyCameraName, name)
	}
	return p.Corrections.Apply(normalized), nil
}

// String formats the record for logs.
func (m TrailCamMetadata) String() string {
	return fmt.Sprintf("%s @ %s", m.CameraName, m.Timestamp.Format(time.DateTime))
}
