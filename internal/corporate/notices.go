package corporate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"pricebook/internal/models"
)

// Column positions in the exchange corporate-action export.
const (
	colSymbol   = 0
	colPurpose  = 3
	colExecDate = 5
)

// ReadNotices reads a corporate-action CSV. The first row is a header; rows too
// short to carry an execution date are logged and skipped.
func ReadNotices(r io.Reader, source string, logger zerolog.Logger) ([]models.Notice, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var notices []models.Notice
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s line %d: %w", source, line, err)
		}
		if line == 1 {
			continue
		}
		if len(record) <= colExecDate {
			logger.Warn().
				Str("source", source).
				Int("line", line).
				Int("columns", len(record)).
				Msg("Skipping short corporate action row")
			continue
		}
		notices = append(notices, models.Notice{
			Symbol:   record[colSymbol],
			Purpose:  record[colPurpose],
			ExecDate: record[colExecDate],
			Source:   source,
			Line:     line,
		})
	}

	return notices, nil
}

// ReadNoticeFile reads the notices of one CSV file.
func ReadNoticeFile(path string, logger zerolog.Logger) ([]models.Notice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open notices: %w", err)
	}
	defer f.Close()

	return ReadNotices(f, filepath.Base(path), logger)
}

// ReadNoticeDir reads every *.csv file of dir in name order.
func ReadNoticeDir(dir string, logger zerolog.Logger) ([]models.Notice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list notices directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var notices []models.Notice
	for _, p := range paths {
		n, err := ReadNoticeFile(p, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("file", filepath.Base(p)).Int("notices", len(n)).Msg("Read corporate action notices")
		notices = append(notices, n...)
	}
	return notices, nil
}
