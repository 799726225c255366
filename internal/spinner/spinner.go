// Package spinner draws a one-line activity indicator while a case compiles.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

// DefaultInterval is the delay between frames.
const DefaultInterval = 80 * time.Millisecond

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Start animates message on w until the returned stop function is called.
// stop clears the line and may be called more than once.
func Start(w io.Writer, message string) (stop func()) {
	return StartWithInterval(w, message, DefaultInterval)
}

func StartWithInterval(w io.Writer, message string, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	cleared := make(chan struct{})
	var stopOnce sync.Once

	// frame glyph, a space, then the message
	width := runewidth.StringWidth(message) + 2

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-done:
				fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", width)) //nolint:errcheck
				close(cleared)
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], message) //nolint:errcheck
				i++
			}
		}
	}()

	return func() {
		stopOnce.Do(func() {
			close(done)
		})
		<-cleared
	}
}
