package catalog

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/SuiteSpot/extension/internal/util"
	"github.com/SuiteSpot/extension/pkg/core"
)

const shotsPrefix = "shots:"

// Report summarizes a catalog parse.
type Report struct {
	Warnings []string
	// LegacySeen is set when at least one line carried its shot count as a
	// parenthesized name suffix.
	LegacySeen bool
	// Upgraded is set by Store.Load once the legacy file was rewritten.
	Upgraded bool
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Parse reads catalog lines from r. Malformed lines are skipped and reported,
// never fatal. The result is sorted by name, ignoring case.
func Parse(r io.Reader) ([]core.TrainingEntry, Report) {
	var (
		report  Report
		entries []core.TrainingEntry
		lineNum int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		parts := util.SplitFields(line)
		if len(parts) < 2 {
			report.warn("malformed entry on line %d: %q, expected 'code,name'", lineNum, line)
			continue
		}

		code, name := parts[0], parts[1]
		shots := 0

		if len(parts) == 2 {
			if base, n, ok := splitLegacySuffix(name); ok {
				name, shots = base, n
				report.LegacySeen = true
			}
		} else {
			shots = parseShotsField(parts[2], lineNum, &report)
		}

		if code == "" || name == "" {
			report.warn("empty code or name on line %d", lineNum)
			continue
		}

		entries = append(entries, core.TrainingEntry{Code: code, Name: name, ShotCount: shots})
	}
	if err := scanner.Err(); err != nil {
		report.warn("read stopped after line %d: %v", lineNum, err)
	}

	SortByName(entries)
	return entries, report
}

// splitLegacySuffix strips a trailing "(N)" or "(Shots: N)" from a name.
func splitLegacySuffix(name string) (string, int, bool) {
	if !strings.HasSuffix(name, ")") {
		return name, 0, false
	}
	open := strings.LastIndexByte(name, '(')
	if open < 0 {
		return name, 0, false
	}

	inside := util.Trim(name[open+1 : len(name)-1])
	if util.HasPrefixFold(inside, "shots") {
		rest := util.Trim(inside[len("shots"):])
		if !strings.HasPrefix(rest, ":") {
			return name, 0, false
		}
		inside = util.Trim(rest[1:])
	}

	n, err := strconv.Atoi(inside)
	if err != nil || n < 0 {
		return name, 0, false
	}
	return util.Trim(name[:open]), n, true
}

func parseShotsField(field string, lineNum int, report *Report) int {
	if !util.HasPrefixFold(field, shotsPrefix) {
		return 0
	}
	raw := util.Trim(field[len(shotsPrefix):])
	n, err := strconv.Atoi(raw)
	if err != nil {
		report.warn("invalid shot count on line %d: %q", lineNum, raw)
		return 0
	}
	if n < 0 {
		report.warn("negative shot count on line %d: %d", lineNum, n)
		return 0
	}
	return n
}

// SortByName orders entries by name ignoring ASCII case. Equal names keep
// their relative order.
func SortByName(entries []core.TrainingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return util.CompareFold(entries[i].Name, entries[j].Name) < 0
	})
}

// Format renders entries in the canonical code,name,Shots:N form.
func Format(entries []core.TrainingEntry) []byte {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Code)
		b.WriteByte(',')
		b.WriteString(e.Name)
		b.WriteString(",Shots:")
		b.WriteString(strconv.Itoa(e.ShotCount))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
