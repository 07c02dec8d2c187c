// Package console renders the gate's output: banner, progress, cycling
// failure lines, countdown and prompts. In automated test mode all cursor
// addressing and color is suppressed so the harness gets plain lines.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/kairos-io/go-bootsum/pkg/types"
)

const (
	colsMin = 50
	rowsMin = 20
	marginH = 2

	// pollGranularity is the sleep-and-recheck step of the countdown.
	pollGranularity = 200 * time.Millisecond
)

// ANSI attributes, suppressed in test mode.
const (
	attrReset  = "\x1b[0m"
	attrRed    = "\x1b[91m"
	attrYellow = "\x1b[93m"
	attrWhite  = "\x1b[97m"
	attrGray   = "\x1b[90m"
)

// Input is the keystroke source consumed by the countdown and the prompt
// stages. *Keyboard implements it; tests script their own.
type Input interface {
	Poll() (byte, bool)
	Read() (byte, bool)
	Drain()
}

// Console wraps the terminal the gate talks to.
type Console struct {
	Out      io.Writer
	TestMode bool
	Cols     int
	Rows     int

	bar *pb.ProgressBar
}

// New sizes the console from the controlling terminal, falling back to the
// minimum geometry when there is none.
func New(testMode bool) *Console {
	c := &Console{Out: os.Stdout, TestMode: testMode, Cols: colsMin, Rows: rowsMin}
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w >= colsMin && h >= rowsMin {
		c.Cols, c.Rows = w, h
	}
	return c
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

// setPos moves the cursor (1-based ANSI addressing, 0-based arguments).
func (c *Console) setPos(x, y int) {
	if !c.TestMode {
		c.printf("\x1b[%d;%dH", y+1, x+1)
	}
}

func (c *Console) attr(a string) string {
	if c.TestMode {
		return ""
	}
	return a
}

func (c *Console) clearLine(y int) {
	if !c.TestMode {
		c.setPos(0, y)
		c.printf("\x1b[2K")
	}
}

// Clear wipes the screen unless running under the test harness.
func (c *Console) Clear() {
	if !c.TestMode {
		c.printf("\x1b[2J")
	}
}

// Banner prints the centered application banner.
func (c *Console) Banner(version, archTag string) {
	c.Clear()
	title := fmt.Sprintf("bootsum %s (%s)", version, archTag)
	line := strings.Repeat("─", len(title)+4)
	c.PrintCentered("┌"+line+"┐", 1)
	c.PrintCentered("│  "+title+"  │", 2)
	c.PrintCentered("└"+line+"┘", 3)
}

// PrintCentered prints a message centered on the given row. In test mode
// it is just a plain line.
func (c *Console) PrintCentered(msg string, y int) {
	if c.TestMode {
		c.printf("%s\n", msg)
		return
	}
	x := c.Cols/2 - len([]rune(msg))/2
	if x < marginH {
		x = marginH
	}
	c.clearLine(y)
	c.setPos(x, y)
	c.printf("%s\n", msg)
}

// Info prints an informational line.
func (c *Console) Info(format string, args ...interface{}) {
	c.printf("%s[INFO]%s %s\n", c.attr(attrWhite), c.attr(attrReset), fmt.Sprintf(format, args...))
}

// Warn prints a warning line.
func (c *Console) Warn(format string, args ...interface{}) {
	c.printf("%s[WARN]%s %s\n", c.attr(attrYellow), c.attr(attrReset), fmt.Sprintf(format, args...))
}

// Test prints a line only meaningful to the automated harness.
func (c *Console) Test(format string, args ...interface{}) {
	if c.TestMode {
		c.printf("[TEST] %s\n", fmt.Sprintf(format, args...))
	}
}

// Fail prints an error line.
func (c *Console) Fail(format string, args ...interface{}) {
	c.printf("%s[FAIL]%s %s\n", c.attr(attrRed), c.attr(attrReset), fmt.Sprintf(format, args...))
}

// visibleFailureRows is the size of the console section failure lines
// cycle over.
func (c *Console) visibleFailureRows() int {
	rows := c.Rows/2 - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

// FailedEntry displays one failed entry the moment it fails. The display
// slot is keyed by the failure ordinal modulo the visible rows, so runs
// with more failures than rows overwrite the oldest lines. That is
// accepted behavior on the constrained display, not a bug.
func (c *Console) FailedEntry(res types.EntryResult, numFailed int) {
	path := res.Path
	if len(path) > 80 {
		path = path[:80]
	}

	// A friendlier message for digest mismatches than for read errors.
	var why string
	switch res.Status {
	case types.StatusHashMismatch:
		why = "MD5 Checksum Error"
	case types.StatusPathEncodingFailed:
		why = "Invalid Path Encoding"
	default:
		why = res.Reason
	}

	if c.TestMode {
		c.Fail("File '%s': %s", path, why)
		return
	}
	row := 5 + numFailed%c.visibleFailureRows()
	c.clearLine(row)
	c.setPos(marginH, row)
	c.printf("%s[FAIL]%s File '%s': %s\n", attrRed, attrReset, path, why)
}

// StartProgress sets up the verification progress bar. Suppressed in test
// mode, where progress only shows up in the final summary line.
func (c *Console) StartProgress(title string, total int) {
	if c.TestMode || total == 0 {
		return
	}
	c.PrintCentered(title, c.Rows/2-1)
	c.setPos(0, c.Rows/2)
	c.bar = pb.New(total)
	c.bar.SetWriter(c.Out)
	c.bar.Start()
}

// Progress is the verification engine's progress hook.
func (c *Console) Progress(index, total int) {
	if c.bar == nil {
		return
	}
	c.bar.SetCurrent(int64(index))
}

// FinishProgress tears the bar down.
func (c *Console) FinishProgress() {
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
}

// Summary prints the final processed/failed line. Always printed, even
// when every failure line has scrolled out of its display slot.
func (c *Console) Summary(summary types.RunSummary) {
	plural := "s"
	if summary.Total == 1 {
		plural = ""
	}
	msg := fmt.Sprintf("%d/%d file%s processed [%d failed]",
		summary.Processed, summary.Total, plural, summary.Failed)
	if summary.Cancelled {
		msg += " (cancelled)"
	}
	if c.TestMode {
		c.printf("%s\n", msg)
		return
	}
	c.PrintCentered(msg, c.Rows/2+2)
}

// Countdown displays an interruptible countdown: any keystroke skips the
// remaining wait, it does not cancel what follows. Polling runs at a fixed
// granularity; there is no event callback.
func (c *Console) Countdown(kb Input, msg string, duration time.Duration) {
	if c.TestMode || kb == nil {
		return
	}
	kb.Drain()
	for remaining := duration; remaining >= 0; remaining -= pollGranularity {
		if _, ok := kb.Poll(); ok {
			break
		}
		if remaining%time.Second == 0 {
			c.PrintCentered(fmt.Sprintf("%s[%s %d]%s", attrYellow, msg, remaining/time.Second, attrReset), c.Rows-2)
		}
		time.Sleep(pollGranularity)
	}
}

// PromptYesNo waits indefinitely for a y/N answer. Only 'y' accepts.
func (c *Console) PromptYesNo(kb Input, msg string) bool {
	if kb == nil {
		return false
	}
	c.PrintCentered(c.attr(attrYellow)+msg+" [y/N]"+c.attr(attrReset), c.Rows-2)
	kb.Drain()
	key, ok := kb.Read()
	if !ok {
		return false
	}
	return key == 'y' || key == 'Y'
}

// WaitForKey blocks until any keystroke.
func (c *Console) WaitForKey(kb Input, msg string) {
	if kb == nil {
		return
	}
	c.PrintCentered(c.attr(attrYellow)+msg+c.attr(attrReset), c.Rows-2)
	kb.Drain()
	kb.Read()
}
