// Command auditsummary aggregates the dashboard audit trail (audit.ndjson)
// into per-action counts and latency figures.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
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

type auditEvent struct {
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Timestamp      time.Time `json:"timestamp"`
	Event          string    `json:"event"`
	Screen         string    `json:"screen"`
	Targets        []string  `json:"targets"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error"`
	ElapsedMS      int64     `json:"elapsed_ms"`
	line           int
}

type actionAggregate struct {
	Event         string         `json:"event"`
	Count         int            `json:"count"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	Targets       int            `json:"targets"`
	FirstSeen     time.Time      `json:"first_seen"`
	LastSeen      time.Time      `json:"last_seen"`
	LatencyMsSum  int64          `json:"latency_ms_sum"`
	LatencyMedian float64        `json:"latency_median"`
	Errors        map[string]int `json:"errors,omitempty"`
	Anomalies     []string       `json:"anomalies,omitempty"`
}

type auditReport struct {
	Source   string            `json:"source"`
	Sessions int               `json:"sessions"`
	Users    []string          `json:"users"`
	Actions  []actionAggregate `json:"actions"`
	Skipped  int               `json:"skipped_lines"`
}

func main() {
	var inputPath string
	var outputPath string
	var since time.Duration
	flag.StringVar(&inputPath, "in", "", "audit file (default: audit.ndjson in the config dir)")
	flag.StringVar(&outputPath, "out", "", "output JSON path (optional, defaults to stdout)")
	flag.DurationVar(&since, "since", 0, "only count events newer than this, e.g. 24h")
	flag.Parse()

	if inputPath == "" {
		inputPath = filepath.Join(config.Dir(), "audit.ndjson")
	}
	if since < 0 {
		exit(errors.New("--since must not be negative"))
	}

	file, err := os.Open(inputPath)
	if err != nil {
		exit(err)
	}
	defer file.Close()

	var cutoff time.Time
	if since > 0 {
		cutoff = time.Now().Add(-since)
	}
	events, skipped, err := parseAudit(file, cutoff)
	if err != nil {
		exit(fmt.Errorf("parse audit: %w", err))
	}

	report := buildReport(inputPath, events)
	report.Skipped = skipped

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exit(fmt.Errorf("encode report: %w", err))
	}
	if outputPath == "" {
		fmt.Println(string(encoded))
		return
	}
	if err := os.WriteFile(outputPath, append(encoded, '\n'), 0o644); err != nil {
		exit(fmt.Errorf("write output: %w", err))
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "auditsummary: %v\n", err)
	os.Exit(1)
}

// parseAudit reads one event per line. Lines that are not valid events are
// counted and skipped.
func parseAudit(r io.Reader, cutoff time.Time) ([]auditEvent, int, error) {
	var (
		scanner = bufio.NewScanner(r)
		lineNo  = 0
		skipped = 0
		events  []auditEvent
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev auditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Event == "" {
			skipped++
			continue
		}
		if !cutoff.IsZero() && ev.Timestamp.Before(cutoff) {
			continue
		}
		ev.line = lineNo
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	return events, skipped, nil
}

func buildReport(path string, events []auditEvent) auditReport {
	report := auditReport{Source: path, Users: []string{}, Actions: []actionAggregate{}}
	if len(events) == 0 {
		return report
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	sessions := map[string]bool{}
	users := map[string]bool{}
	byEvent := map[string][]auditEvent{}
	for _, ev := range events {
		sessions[ev.SessionID] = true
		if ev.UserID != "" {
			users[ev.UserID] = true
		}
		byEvent[ev.Event] = append(byEvent[ev.Event], ev)
	}
	report.Sessions = len(sessions)
	for u := range users {
		report.Users = append(report.Users, u)
	}
	sort.Strings(report.Users)

	names := make([]string, 0, len(byEvent))
	for name := range byEvent {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.Actions = append(report.Actions, aggregate(name, byEvent[name]))
	}
	return report
}

func aggregate(name string, events []auditEvent) actionAggregate {
	agg := actionAggregate{Event: name, Count: len(events)}
	if len(events) == 0 {
		return agg
	}
	agg.FirstSeen = events[0].Timestamp
	agg.LastSeen = events[len(events)-1].Timestamp

	latency := make([]int64, 0, len(events))
	for _, ev := range events {
		agg.Targets += len(ev.Targets)
		latency = append(latency, ev.ElapsedMS)
		agg.LatencyMsSum += ev.ElapsedMS
		if ev.Outcome == "success" {
			agg.Succeeded++
			continue
		}
		agg.Failed++
		if ev.Error != "" {
			if agg.Errors == nil {
				agg.Errors = map[string]int{}
			}
			agg.Errors[ev.Error]++
		}
	}
	agg.LatencyMedian = computeMedian(latency)
	agg.Anomalies = detectAnomalies(agg, latency)
	return agg
}

func computeMedian(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func detectAnomalies(agg actionAggregate, latency []int64) []string {
	var out []string
	if agg.Count >= 4 && agg.Failed*2 > agg.Count {
		out = append(out, fmt.Sprintf("more failures than successes (%d/%d)", agg.Failed, agg.Count))
	}
	for _, v := range latency {
		if v > 10000 {
			out = append(out, fmt.Sprintf("latency spike %dms", v))
			break
		}
	}
	return out
}
