package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogFile is a run log on disk.
type LogFile struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	NumEvents int
}

// ListLogs finds run logs in dir, newest first.
func ListLogs(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading run log directory: %w", err)
	}

	var files []LogFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), LogSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(dir, e.Name())
		n, _ := countLines(path) //nolint:errcheck
		files = append(files, LogFile{
			Path:      path,
			Name:      e.Name(),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			NumEvents: n,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name > files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})

	return files, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// FilterRun returns the events of the run whose id starts with prefix.
// It fails when no run or more than one run matches.
func FilterRun(events []Event, prefix string) ([]Event, error) {
	var matched string
	for _, ev := range events {
		if ev.RunID == "" || !strings.HasPrefix(ev.RunID, prefix) || ev.RunID == matched {
			continue
		}
		if matched != "" {
			return nil, fmt.Errorf("run id %q is ambiguous: matches %s and %s", prefix, matched, ev.RunID)
		}
		matched = ev.RunID
	}
	if matched == "" {
		return nil, fmt.Errorf("no run matching %q", prefix)
	}

	var out []Event
	for _, ev := range events {
		if ev.RunID == matched {
			out = append(out, ev)
		}
	}
	return out, nil
}

// ReadEvents parses all events from a run log. Malformed lines are skipped.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading run log: %w", err)
	}
	return events, nil
}

// RenderTimeline writes a human-readable run timeline to w.
//
//nolint:errcheck // display-only writes
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	rule := strings.Repeat("═", 55)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, " RUN TIMELINE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	start := events[0].Timestamp
	for _, ev := range events {
		ts := formatElapsed(ev.Timestamp.Sub(start))
		d := ev.Data

		switch ev.Type {
		case EventRunStart:
			fmt.Fprintf(w, "[%s] 🚀 Run started  suite=%s  compiler=%s  cases=%d\n",
				ts, jsonString(d["suite_path"]), jsonString(d["compiler"]), jsonNumber(d["case_count"]))

		case EventCaseStart:
			fmt.Fprintf(w, "[%s] ▶  Case %d/%d: %s\n",
				ts, jsonNumber(d["case_num"]), jsonNumber(d["total_cases"]), jsonString(d["case_name"]))

		case EventCheckResult:
			icon := "✗"
			if passed, _ := d["passed"].(bool); passed {
				icon = "✓"
			}
			fmt.Fprintf(w, "[%s]    %s Check %s (%s)", ts, icon, jsonString(d["check"]), jsonString(d["kind"]))
			if fb := jsonString(d["feedback"]); fb != "" {
				fmt.Fprintf(w, ": %s", fb)
			}
			fmt.Fprintln(w)

		case EventCaseComplete:
			status := jsonString(d["status"])
			icon := "✓"
			switch status {
			case "passed":
			case "skipped":
				icon = "-"
			default:
				icon = "✗"
			}
			suffix := ""
			if cached, _ := d["cached"].(bool); cached {
				suffix = " [cached]"
			}
			fmt.Fprintf(w, "[%s] %s  Case complete: %s [%s] (%dms)%s\n",
				ts, icon, jsonString(d["case_name"]), status, jsonNumber(d["duration_ms"]), suffix)

		case EventError:
			fmt.Fprintf(w, "[%s] ❌ Error: %s\n", ts, jsonString(d["message"]))

		case EventRunStopped:
			fmt.Fprintf(w, "[%s] ⏹  Run stopped: %s\n", ts, jsonString(d["reason"]))

		case EventRunComplete:
			fmt.Fprintf(w, "[%s] 🏁 Run complete  %d/%d succeeded  %d failed  %d errors  (%dms)\n",
				ts, jsonNumber(d["succeeded"]), jsonNumber(d["total_cases"]),
				jsonNumber(d["failed"]), jsonNumber(d["errors"]), jsonNumber(d["duration_ms"]))

		default:
			fmt.Fprintf(w, "[%s] %s %v\n", ts, ev.Type, d)
		}
	}
	fmt.Fprintln(w)
}

func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonNumber extracts an integer from a JSON-decoded value.
func jsonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64() //nolint:errcheck
		return int(i)
	}
	return 0
}

func jsonString(v any) string {
	s, _ := v.(string)
	return s
}
