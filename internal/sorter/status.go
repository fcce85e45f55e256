package sorter

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/briancolinger/trail-cam-sorter/internal/metadata"
)

// Status prints a block of progress lines after each sorted file.
type Status struct {
	out   io.Writer
	start time.Time
	label *color.Color
	value *color.Color
	warn  *color.Color
}

// NewStatus writes progress to out. Colours follow fatih/color's NoColor
// detection, so pipes and files get plain text.
func NewStatus(out io.Writer, start time.Time) *Status {
	return &Status{
		out:   out,
		start: start,
		label: color.New(color.FgCyan),
		value: color.New(color.Bold),
		warn:  color.New(color.FgYellow),
	}
}

// Sorted reports a file whose metadata was read.
func (st *Status) Sorted(n, total int, input, output string, md metadata.TrailCamMetadata, now time.Time) {
	if st == nil {
		return
	}
	st.line("Progress", fmt.Sprintf("%d of %d (%s)", n, total, percent(n, total)))
	st.line("Input File", input)
	st.line("Output File", output)
	st.line("Timestamp", md.Timestamp.Format(time.DateTime))
	st.line("Camera Name", md.CameraName)
	st.line("Elapsed Time", elapsed(now.Sub(st.start)))
	fmt.Fprintln(st.out)
}

// Skipped reports a file for which no frame could be read.
func (st *Status) Skipped(n, total int, input string, now time.Time) {
	if st == nil {
		return
	}
	st.line("Progress", fmt.Sprintf("%d of %d (%s)", n, total, percent(n, total)))
	st.warn.Fprintf(st.out, "Unprocessable: %s\n", input)
	st.line("Elapsed Time", elapsed(now.Sub(st.start)))
	fmt.Fprintln(st.out)
}

func (st *Status) line(label, value string) {
	st.label.Fprintf(st.out, "%s: ", label)
	st.value.Fprintln(st.out, value)
}

func percent(n, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
}

// elapsed formats d as HH:MM:SS.
func elapsed(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
