package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/fatih/color"

	"hydromet/internal/upload"
)

const barWidth = 30

// progressBar redraws a single terminal line for each pipeline update.
type progressBar struct {
	mu    sync.Mutex
	w     io.Writer
	label string
	last  string
	drawn bool
	done  bool
}

func newProgressBar(w io.Writer, label string) *progressBar {
	return &progressBar{w: w, label: label}
}

// Observe is an upload.Observer.
func (b *progressBar) Observe(p upload.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	line := renderBar(b.label, p)
	if line == b.last {
		return
	}
	b.last = line
	b.drawn = true
	fmt.Fprintf(b.w, "\r%s", line)
	if p.Status.Terminal() {
		fmt.Fprintln(b.w)
		b.done = true
	}
}

// Done ends the line if the attempt stopped without a terminal update.
func (b *progressBar) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drawn && !b.done {
		fmt.Fprintln(b.w)
	}
	b.done = true
}

func renderBar(label string, p upload.Progress) string {
	pct := int(math.Round(p.Percent))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * barWidth / 100
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)

	paint := color.New(color.FgCyan).SprintFunc()
	switch p.Status {
	case upload.StatusSuccess:
		paint = color.New(color.FgGreen).SprintFunc()
	case upload.StatusError:
		paint = color.New(color.FgRed).SprintFunc()
	}
	return fmt.Sprintf("%s [%s] %3d%% %s", label, paint(bar), pct, p.Status)
}
