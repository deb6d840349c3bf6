package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmitrijs2005/quicksend/internal/client/driver"
	"golang.org/x/term"
)

// Test seams for terminal detection.
var (
	isTerminal = term.IsTerminal
	termSize   = term.GetSize
)

// progressLine draws a single, self-overwriting progress bar. It stays silent
// when stdout is not a terminal.
type progressLine struct {
	mu      sync.Mutex
	w       io.Writer
	fd      int
	enabled bool
}

func newProgressLine(w io.Writer, tty *os.File) *progressLine {
	fd := int(tty.Fd())
	return &progressLine{w: w, fd: fd, enabled: isTerminal(fd)}
}

// track returns the progress callback for one upload, or nil when disabled.
func (p *progressLine) track(path string) driver.ProgressFunc {
	if p == nil || !p.enabled {
		return nil
	}
	label := filepath.Base(path)
	last := -1
	return func(f float64) {
		pct := int(f * 100)
		p.mu.Lock()
		defer p.mu.Unlock()
		if pct == last {
			return
		}
		last = pct
		fmt.Fprint(p.w, "\r"+renderBar(label, f, p.width()))
		if pct >= 100 {
			fmt.Fprintln(p.w)
		}
	}
}

func (p *progressLine) width() int {
	w, _, err := termSize(p.fd)
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// renderBar renders "[####    ]  42% name" to fit in width columns.
func renderBar(label string, f float64, width int) string {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	suffix := fmt.Sprintf(" %3d%% %s", int(f*100), label)

	bar := width - len(suffix) - 2
	if bar > 40 {
		bar = 40
	}
	if bar < 10 {
		bar = 10
	}
	filled := int(f * float64(bar))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", bar-filled) + "]" + suffix
}
