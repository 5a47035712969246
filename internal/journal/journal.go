// Package journal persists per-task status transitions as plain-text run
// artifacts and reconstructs them on a later invocation. The artifact name
// advertises the run outcome: the _running suffix is dropped on success and
// replaced with _failed otherwise, so a reader can decide whether there is
// anything to resume without opening the file.
package journal

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/flotilla-run/flotilla/internal/batch"
)

const (
	// DateFormat is the resume-scope date layout.
	DateFormat = "20060102"

	// ResumeDateEnv overrides the resume-scope date when no flag is given.
	ResumeDateEnv = "FLOTILLA_RESUME_LOG_DATE"

	// stampFormat names artifacts with millisecond precision so repeated
	// invocations within one second do not collide.
	stampFormat = "20060102-150405.000"

	timestampFormat = "2006-01-02T15:04:05.000Z07:00"

	suffixRunning = "_B_running.log"
	suffixFailed  = "_B_failed.log"
	suffixClean   = "_B.log"
)

var markerPattern = regexp.MustCompile(`ORDER_ID::(\d+)::TASK::(.+)::([A-Z_]+)\s*$`)

// formatMarker renders one status line. Markers must stay parseable by a
// process instance other than the one that wrote them.
func formatMarker(ts time.Time, orderID int, taskID string, status batch.Status) string {
	return fmt.Sprintf("%s ORDER_ID::%d::TASK::%s::%s", ts.UTC().Format(timestampFormat), orderID, taskID, status)
}

// parseMarker extracts a status record from one artifact line.
func parseMarker(line string) (int, string, batch.Status, bool) {
	m := markerPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, "", "", false
	}
	orderID, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", "", false
	}
	status, ok := batch.ParseStatus(m[3])
	if !ok {
		return 0, "", "", false
	}
	return orderID, m[2], status, true
}

func isArtifact(name string) bool {
	return strings.HasSuffix(name, suffixRunning) ||
		strings.HasSuffix(name, suffixFailed) ||
		strings.HasSuffix(name, suffixClean)
}

// ResolveResumeDate picks the resume-scope date: the explicit value wins,
// then the environment override, then today. The date must use DateFormat;
// anything else is rejected so a typo cannot silently select "no history".
func ResolveResumeDate(explicit string, now time.Time) (string, error) {
	date := explicit
	if date == "" {
		date = os.Getenv(ResumeDateEnv)
	}
	if date == "" {
		return now.Format(DateFormat), nil
	}
	if _, err := time.Parse(DateFormat, date); err != nil {
		return "", fmt.Errorf("resume date %q is not in YYYYMMDD form: %w", date, err)
	}
	return date, nil
}
