// Command formatlogs turns the JSON lines of keydash.log into a readable
// transcript.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bekirdag/keydash/internal/config"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3, "dpanic": 4, "panic": 5, "fatal": 6}

// reserved keys are rendered in the line header, not as attributes.
var reserved = map[string]bool{
	"timestamp": true, "level": true, "message": true, "caller": true, "logger": true, "service": true, "stacktrace": true,
}

type formatOptions struct {
	minLevel  string
	auditOnly bool
	withCall  bool
}

func main() {
	var inputPath string
	var outputPath string
	opts := formatOptions{}
	flag.StringVar(&inputPath, "in", "", "log file (default: keydash.log in the config dir)")
	flag.StringVar(&outputPath, "out", "", "output file path (optional, defaults to stdout)")
	flag.StringVar(&opts.minLevel, "level", "debug", "lowest level to include")
	flag.BoolVar(&opts.auditOnly, "audit", false, "only include audit entries")
	flag.BoolVar(&opts.withCall, "caller", false, "include the caller of each entry")
	flag.Parse()

	if inputPath == "" {
		inputPath = filepath.Join(config.Dir(), "keydash.log")
	}
	if _, ok := levelRank[opts.minLevel]; !ok {
		exitWithError(fmt.Errorf("unknown level %q", opts.minLevel))
	}

	in, err := os.Open(inputPath)
	if err != nil {
		exitWithError(err)
	}
	defer in.Close()

	var out io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			exitWithError(err)
		}
		defer f.Close()
		out = f
	}
	if err := formatStream(in, out, opts); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "formatlogs: %v\n", err)
	os.Exit(1)
}

func formatStream(r io.Reader, w io.Writer, opts formatOptions) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		formatted, ok := formatLine(line, opts)
		if !ok {
			continue
		}
		if _, err := bw.WriteString(formatted + "\n"); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// formatLine renders one entry. Lines that are not JSON pass through as-is so
// console-encoded logs survive.
func formatLine(line string, opts formatOptions) (string, bool) {
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line, !opts.auditOnly
	}
	level, _ := entry["level"].(string)
	if levelRank[level] < levelRank[opts.minLevel] {
		return "", false
	}
	if audit, _ := entry["audit"].(bool); opts.auditOnly && !audit {
		return "", false
	}

	stamp := "--:--:--"
	if raw, ok := entry["timestamp"].(string); ok {
		if ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", raw); err == nil {
			stamp = ts.Local().Format("15:04:05")
		} else if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			stamp = ts.Local().Format("15:04:05")
		}
	}
	message, _ := entry["message"].(string)

	keys := make([]string, 0, len(entry))
	for k := range entry {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", stamp, strings.ToUpper(level), message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, renderValue(entry[k]))
	}
	if caller, ok := entry["caller"].(string); ok && opts.withCall {
		fmt.Fprintf(&b, " (%s)", caller)
	}
	return b.String(), true
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " \t") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = renderValue(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case nil:
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
