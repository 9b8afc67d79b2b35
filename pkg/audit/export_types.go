package audit

// Format selects the export encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl" // one JSON object per line
	FormatCSV   Format = "csv"
)

// ExportOptions controls one export run.
type ExportOptions struct {
	Format Format
	// Pretty indents JSON output.
	Pretty bool
	// Filter narrows which entries are exported.
	Filter *Filter
	// MaxLevel withholds entries above the caller's clearance.
	MaxLevel SecurityLevel
	// Compress wraps the output in a snappy stream. File exports get a
	// ".sz" suffix appended when set.
	Compress bool
}

// DefaultExportOptions exports everything as JSONL at full clearance.
func DefaultExportOptions() *ExportOptions {
	return &ExportOptions{
		Format:   FormatJSONL,
		MaxLevel: LevelClassified,
	}
}

// Exporter writes audit entries out of the ring buffer.
type Exporter struct {
	log *AuditLog
}

// NewExporter creates a new exporter over the given log.
func NewExporter(log *AuditLog) *Exporter {
	return &Exporter{log: log}
}
