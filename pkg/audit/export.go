package audit

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/snappy"
)

// Export writes matching entries to the writer in the requested format.
func (e *Exporter) Export(writer io.Writer, options *ExportOptions) (retErr error) {
	if options == nil {
		options = DefaultExportOptions()
	}

	entries := e.collect(options)

	if options.Compress {
		sw := snappy.NewBufferedWriter(writer)
		defer func() {
			if closeErr := sw.Close(); closeErr != nil && retErr == nil {
				retErr = fmt.Errorf("failed to flush snappy stream: %w", closeErr)
			}
		}()
		writer = sw
	}

	switch options.Format {
	case FormatJSON:
		return e.exportJSON(writer, entries, options.Pretty)
	case FormatJSONL:
		return e.exportJSONL(writer, entries)
	case FormatCSV:
		return e.exportCSV(writer, entries)
	default:
		return fmt.Errorf("unsupported export format: %s", options.Format)
	}
}

// ExportToFile writes matching entries to a file. Compressed exports get
// a ".sz" suffix unless the name already carries one.
func (e *Exporter) ExportToFile(filename string, options *ExportOptions) (retErr error) {
	if options == nil {
		options = DefaultExportOptions()
	}
	if options.Compress && !strings.HasSuffix(filename, ".sz") {
		filename += ".sz"
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("failed to close export file: %w", closeErr)
		}
	}()

	retErr = e.Export(file, options)
	return retErr
}

// collect pulls entries from the ring, applying the filter and the
// clearance ceiling.
func (e *Exporter) collect(options *ExportOptions) []*Entry {
	entries := e.log.Events(options.Filter)

	// Withhold entries above the caller's clearance
	filtered := entries[:0:0]
	for _, entry := range entries {
		if entry.Level > options.MaxLevel {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}
