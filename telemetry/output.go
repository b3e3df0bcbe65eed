package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/fruitmerge/config"
)

// csvFile is an append-only CSV file that writes its header once.
type csvFile struct {
	name          string
	f             *os.File
	headerWritten bool
}

func writeRows[T any](cf *csvFile, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if !cf.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, cf.f); err != nil {
			return fmt.Errorf("writing %s: %w", cf.name, err)
		}
		cf.headerWritten = true
		return nil
	}
	// Subsequent writes skip headers
	if err := gocsv.MarshalWithoutHeaders(records, cf.f); err != nil {
		return fmt.Errorf("writing %s: %w", cf.name, err)
	}
	return nil
}

// OutputManager handles structured session output with CSV logging.
type OutputManager struct {
	dir        string
	telemetry  *csvFile
	perf       *csvFile
	milestones *csvFile
	merges     *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	targets := []struct {
		dst  **csvFile
		name string
	}{
		{&om.telemetry, "telemetry.csv"},
		{&om.perf, "perf.csv"},
		{&om.milestones, "milestones.csv"},
		{&om.merges, "merges.csv"},
	}
	for _, t := range targets {
		f, err := os.Create(filepath.Join(dir, t.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", t.name, err)
		}
		*t.dst = &csvFile{name: t.name, f: f}
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return writeRows(om.telemetry, []WindowStats{stats})
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	return writeRows(om.perf, []PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteMilestone writes a milestone record to milestones.csv.
func (om *OutputManager) WriteMilestone(m Milestone) error {
	if om == nil {
		return nil
	}
	return writeRows(om.milestones, []Milestone{m})
}

// WriteMerges appends merge log rows to merges.csv.
func (om *OutputManager) WriteMerges(records []MergeRecord) error {
	if om == nil {
		return nil
	}
	return writeRows(om.merges, records)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files. Closing twice is a no-op.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, cf := range []*csvFile{om.telemetry, om.perf, om.milestones, om.merges} {
		if cf == nil || cf.f == nil {
			continue
		}
		if err := cf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		cf.f = nil
	}
	return firstErr
}
