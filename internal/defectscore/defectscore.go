// Package defectscore loads per-class defect-prediction scores (spec.md
// §6) and uses them to label targets as buggy. The loader and its
// malformed-row handling are grounded on the teacher's config.go
// convention of collecting every validation failure and aggregating
// them with go.uber.org/multierr rather than failing on the first one.
package defectscore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dynamosa/dynamosa/internal/dynerr"
	"github.com/dynamosa/dynamosa/internal/target"
)

var genericParams = regexp.MustCompile(`<[^>]*>`)

// Normalize applies spec.md §6's fqMethodName normalization rules:
// varargs "..." becomes "[]", generic type parameters "<...>" are
// stripped, and ")void:" is normalized to "):".
func Normalize(fqMethodName string) string {
	s := genericParams.ReplaceAllString(fqMethodName, "")
	s = strings.ReplaceAll(s, "...", "[]")
	s = strings.ReplaceAll(s, ")void:", "):")
	return s
}

// Load reads every *.csv file directly under dpDir, each with header row
// fqMethodName,defectScore, and returns a normalized-name -> score map.
// Malformed rows and files are aggregated into a single
// dynerr.ConfigurationError rather than failing on the first one found,
// so a caller can report every problem in one pass.
func Load(dpDir string) (map[string]float64, error) {
	entries, err := os.ReadDir(dpDir)
	if err != nil {
		return nil, dynerr.NewConfigurationError("defectscore.load", err)
	}

	scores := make(map[string]float64)
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		if err := loadFile(filepath.Join(dpDir, e.Name()), scores); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return scores, dynerr.AppendConfigurationErrors("defectscore.load", errs...)
	}
	return scores, nil
}

func loadFile(path string, out map[string]float64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("%s: reading header: %w", path, err)
	}
	if len(header) < 2 || strings.TrimSpace(header[0]) != "fqMethodName" || strings.TrimSpace(header[1]) != "defectScore" {
		return fmt.Errorf("%s: unexpected header %v, want [fqMethodName defectScore]", path, header)
	}

	row := 1
	var errs []error
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return errors.Join(errs...)
		}
		row++
		if err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %w", path, row, err))
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return errors.Join(errs...)
			}
			continue
		}
		if len(rec) < 2 {
			errs = append(errs, fmt.Errorf("%s:%d: malformed row %v", path, row, rec))
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: invalid defect score %q: %w", path, row, rec[1], err))
			continue
		}
		out[Normalize(rec[0])] = score
	}
}

// ApplyBuggyLabels sets Buggy=true on every goal whose FQMethodName
// (normalized) has a non-zero defect score, and reports every
// defect-score entry that matched no goal at all — these are
// spec.md §7's GoalMissing cases, logged and skipped by the caller
// rather than treated as fatal.
func ApplyBuggyLabels(scores map[string]float64, goals []*target.Target) (missing []string) {
	used := make(map[string]bool, len(scores))
	for _, g := range goals {
		if g.FQMethodName == "" {
			continue
		}
		key := Normalize(g.FQMethodName)
		s, ok := scores[key]
		if !ok {
			continue
		}
		used[key] = true
		if s != 0 {
			g.Buggy = true
		}
	}

	for key := range scores {
		if !used[key] {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
