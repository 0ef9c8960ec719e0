package record

// Version constants for the record format and analyzer.
const (
	// FormatVersion is the flat record format version.
	FormatVersion = "1"

	// AnalyzerVersion is the tracegraph analyzer version.
	AnalyzerVersion = "0.1.0"
)
