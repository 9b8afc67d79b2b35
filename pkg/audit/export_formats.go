package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// exportJSON writes entries as one JSON array
func (e *Exporter) exportJSON(writer io.Writer, entries []*Entry, pretty bool) error {
	encoder := json.NewEncoder(writer)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(entries)
}

// exportJSONL writes entries as JSON Lines (one object per line)
func (e *Exporter) exportJSONL(writer io.Writer, entries []*Entry) error {
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if _, err := writer.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// exportCSV writes entries as CSV rows
func (e *Exporter) exportCSV(writer io.Writer, entries []*Entry) (retErr error) {
	csvWriter := csv.NewWriter(writer)
	defer func() {
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil && retErr == nil {
			retErr = fmt.Errorf("CSV writer flush error: %w", err)
		}
	}()

	header := []string{
		"Sequence",
		"ID",
		"Timestamp",
		"Category",
		"EntityKind",
		"EntityID",
		"Status",
		"Reason",
		"Level",
		"VirtualTime",
		"Nodes",
		"Patches",
	}
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			strconv.FormatUint(entry.Sequence, 10),
			entry.ID,
			entry.Timestamp.Format(time.RFC3339),
			string(entry.Category),
			string(entry.EntityKind),
			entry.EntityID,
			string(entry.Status),
			entry.Reason,
			entry.Level.String(),
			strconv.FormatUint(entry.VirtualTime, 10),
			strconv.Itoa(entry.Counters.Nodes),
			strconv.Itoa(entry.Counters.Patches),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	return nil
}
