package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/zstd"

	"github.com/pthm-cable/fauna/config"
)

// csvSink is one CSV output stream, optionally zstd-compressed.
type csvSink struct {
	name          string
	file          *os.File
	enc           *zstd.Encoder
	w             io.Writer
	headerWritten bool
}

func openSink(dir, name string, compress bool) (*csvSink, error) {
	filename := name + ".csv"
	if compress {
		filename += ".zst"
	}
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", filename, err)
	}
	s := &csvSink{name: name, file: f, w: f}
	if compress {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating zstd writer for %s: %w", filename, err)
		}
		s.enc = enc
		s.w = enc
	}
	return s, nil
}

// write appends records, emitting the header on the first call.
func (s *csvSink) write(records any) error {
	var err error
	if !s.headerWritten {
		err = gocsv.Marshal(records, s.w)
		s.headerWritten = err == nil
	} else {
		err = gocsv.MarshalWithoutHeaders(records, s.w)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", s.name, err)
	}
	return nil
}

func (s *csvSink) close() error {
	var encErr error
	if s.enc != nil {
		encErr = s.enc.Close()
	}
	return errors.Join(encErr, s.file.Close())
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	telemetry *csvSink
	goals     *csvSink
	perf      *csvSink
	bookmarks *csvSink
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled). With compress set every CSV
// stream is zstd-compressed and gets a .csv.zst suffix.
func NewOutputManager(dir string, compress bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, spec := range []struct {
		name string
		dst  **csvSink
	}{
		{"telemetry", &om.telemetry},
		{"goals", &om.goals},
		{"perf", &om.perf},
		{"bookmarks", &om.bookmarks},
	} {
		s, err := openSink(dir, spec.name, compress)
		if err != nil {
			om.Close()
			return nil, err
		}
		*spec.dst = s
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.telemetry.write([]WindowStats{stats})
}

// WriteGoals writes per-behavior goal rows to goals.csv.
func (om *OutputManager) WriteGoals(rows []GoalRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}
	return om.goals.write(rows)
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd uint64) error {
	if om == nil {
		return nil
	}
	return om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.write([]Bookmark{b})
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var errs []error
	for _, s := range []*csvSink{om.telemetry, om.goals, om.perf, om.bookmarks} {
		if s != nil {
			errs = append(errs, s.close())
		}
	}
	return errors.Join(errs...)
}
