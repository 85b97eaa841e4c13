package cmd

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/polyhop/xmapgen/lib/xmap"
)

// A writer that syncs writes with a mutex and, if the output is a TTY, clears
// before newlines.
type consoleWriter struct {
	Writer io.Writer
	IsTTY  bool
	Mutex  *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (n int, err error) {
	origLen := len(p)
	if w.IsTTY {
		// Add a TTY code to erase till the end of line with each new line
		p = bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\x1b', '[', '0', 'K', '\n'})
	}

	w.Mutex.Lock()
	n, err = w.Writer.Write(p)
	w.Mutex.Unlock()

	if err != nil && n < origLen {
		return n, err
	}
	return origLen, err
}

// getColor returns the requested color, or an uncolored object, depending on
// the value of noColor. The explicit EnableColor() and DisableColor() are
// needed because the library checks os.Stdout itself otherwise...
func getColor(noColor bool, attributes ...color.Attribute) *color.Color {
	if noColor {
		c := color.New()
		c.DisableColor()
		return c
	}

	c := color.New(attributes...)
	c.EnableColor()
	return c
}

// printSummary renders the run totals on stdout once a generation finishes.
func printSummary(gs *globalState, summary xmap.Summary, took time.Duration) {
	noColor := gs.flags.noColor || !gs.stdOut.IsTTY
	valueColor := getColor(noColor, color.Bold)
	dimColor := getColor(noColor, color.Faint)
	badColor := getColor(noColor, color.FgRed)

	coverage := 0
	if summary.Reference > 0 {
		coverage = summary.Written * 100 / summary.Reference
	}

	fmt.Fprintf(gs.stdOut, "\n  translations: %s (%d%% of the reference crossmap)\n",
		valueColor.Sprintf("%d/%d", summary.Written, summary.Reference), coverage)
	fmt.Fprintf(gs.stdOut, "     recovered: %s\n", valueColor.Sprint(summary.Recovered))
	fmt.Fprintf(gs.stdOut, "       missing: %s\n", dimColor.Sprint(summary.Missing))
	if summary.Verified {
		wrong := valueColor.Sprint(summary.Wrong)
		if summary.Wrong > 0 {
			wrong = badColor.Sprint(summary.Wrong)
		}
		accuracy := 0
		if summary.Written > 0 {
			accuracy = (summary.Written - summary.Wrong) * 100 / summary.Written
		}
		fmt.Fprintf(gs.stdOut, "         wrong: %s (%d%% accuracy)\n", wrong, accuracy)
	}
	fmt.Fprintf(gs.stdOut, "          took: %s\n", dimColor.Sprint(took.Round(time.Millisecond)))
}
