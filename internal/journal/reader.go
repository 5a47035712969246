package journal

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flotilla-run/flotilla/internal/batch"
	"github.com/flotilla-run/flotilla/internal/logger"
)

// ReadPriorRun rebuilds the previous invocation's per-task statuses for a
// batch, restricted to artifacts dated on the resume-scope date. A nil map
// means there is nothing to resume: no artifact directory, no artifact for
// the date, or a latest artifact that finished clean. Unreadable history
// degrades to warnings, never to a failed run.
func ReadPriorRun(root, batchID, date string, log *logger.Logger) (map[int]batch.Status, error) {
	dir := filepath.Join(root, batchID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, date+"-") || !isArtifact(name) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, nil
	}

	// Stamps are fixed width, so lexicographic order is chronological order.
	sort.Strings(names)
	latest := names[len(names)-1]

	if strings.HasSuffix(latest, suffixClean) {
		return nil, nil
	}

	// A _failed artifact is a resume; a _running one means the writer died
	// mid-run, which resumes the same way.
	return parseArtifact(filepath.Join(dir, latest), log)
}

func parseArtifact(path string, log *logger.Logger) (map[int]batch.Status, error) {
	f, err := os.Open(path)
	if err != nil {
		log.WithFields(map[string]any{"artifact": path}).Warn("cannot open prior run artifact, starting fresh")
		return nil, nil
	}
	defer f.Close()

	statuses := make(map[int]batch.Status)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		orderID, _, status, ok := parseMarker(line)
		if !ok {
			if strings.Contains(line, "ORDER_ID::") {
				log.WithFields(map[string]any{"artifact": path, "line": lineNo}).Warn("unparseable status line ignored")
			}
			continue
		}
		// Later lines win: the last transition is the task's outcome.
		statuses[orderID] = status
	}
	if err := scanner.Err(); err != nil {
		log.WithFields(map[string]any{"artifact": path, "error": err.Error()}).Warn("stopped reading prior run artifact early")
	}
	return statuses, nil
}
