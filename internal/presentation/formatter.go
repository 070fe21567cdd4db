package presentation

import (
	"encoding/json"
	"io"
)

// Formatter writes indented JSON for scripting (`| jq`).
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatReport formats a load report as JSON
func (f *Formatter) FormatReport(report ReportDTO) error {
	return f.encode(report)
}

// FormatRegistrations formats registered tables as JSON
func (f *Formatter) FormatRegistrations(registrations []RegistrationDTO) error {
	return f.encode(registrations)
}

// FormatSessions formats journal sessions as JSON
func (f *Formatter) FormatSessions(sessions []SessionDTO) error {
	return f.encode(sessions)
}

// FormatValue formats any value as JSON, e.g. a JSON Schema document.
func (f *Formatter) FormatValue(v any) error {
	return f.encode(v)
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
