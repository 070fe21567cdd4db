package presentation

import (
	"fmt"
	"time"

	"github.com/zjrosen/confhub/internal/hub"
	"github.com/zjrosen/confhub/internal/journal"
)

// ReportDTO represents one load batch for presentation.
type ReportDTO struct {
	SessionID  string     `json:"session_id"`
	Dir        string     `json:"dir"`
	Format     string     `json:"format"`
	State      string     `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	DurationMs float64    `json:"duration_ms"`
	Total      int        `json:"total"`
	Failed     int        `json:"failed"`
	Tables     []TableDTO `json:"tables"`
}

// TableDTO represents one table outcome.
type TableDTO struct {
	Name       string  `json:"name"`
	Path       string  `json:"path"`
	DurationMs float64 `json:"duration_ms"`
	OK         bool    `json:"ok"`
	Kind       string  `json:"kind,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// RegistrationDTO represents a registered table.
type RegistrationDTO struct {
	Name    string `json:"name"`
	Payload string `json:"payload"`
	Path    string `json:"path,omitempty"`
}

// SessionDTO represents a journal row.
type SessionDTO struct {
	ID         string    `json:"id"`
	Dir        string    `json:"dir"`
	Format     string    `json:"format"`
	State      string    `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs float64   `json:"duration_ms"`
	Total      int       `json:"total"`
	Failed     int       `json:"failed"`
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// FromReport converts a hub report to a DTO.
func FromReport(r hub.Report) ReportDTO {
	tables := make([]TableDTO, 0, len(r.Tables))
	for _, t := range r.Tables {
		dto := TableDTO{
			Name:       t.Name,
			Path:       t.Path,
			DurationMs: millis(t.Duration),
			OK:         t.OK(),
			Kind:       t.Kind(),
		}
		if t.Err != nil {
			dto.Error = t.Err.Error()
		}
		tables = append(tables, dto)
	}
	return ReportDTO{
		SessionID:  r.SessionID,
		Dir:        r.Dir,
		Format:     r.Format.String(),
		State:      r.State.String(),
		StartedAt:  r.StartedAt,
		DurationMs: millis(r.Duration),
		Total:      len(r.Tables),
		Failed:     r.Failed(),
		Tables:     tables,
	}
}

// FromJournal rebuilds a report DTO from a stored session and its tables.
func FromJournal(s journal.Session, rows []journal.TableRow) ReportDTO {
	dto := ReportDTO{
		SessionID:  s.ID,
		Dir:        s.Dir,
		Format:     s.Format,
		State:      s.State,
		StartedAt:  s.StartedAt,
		DurationMs: millis(s.Duration),
		Total:      s.Total,
		Failed:     s.Failed,
		Tables:     make([]TableDTO, 0, len(rows)),
	}
	for _, r := range rows {
		dto.Tables = append(dto.Tables, TableDTO{
			Name:       r.Name,
			Path:       r.Path,
			DurationMs: millis(r.Duration),
			OK:         r.OK(),
			Kind:       r.Kind,
			Error:      r.Error,
		})
	}
	return dto
}

// FromSessions converts journal sessions to DTOs.
func FromSessions(sessions []journal.Session) []SessionDTO {
	out := make([]SessionDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionDTO{
			ID:         s.ID,
			Dir:        s.Dir,
			Format:     s.Format,
			State:      s.State,
			StartedAt:  s.StartedAt,
			DurationMs: millis(s.Duration),
			Total:      s.Total,
			Failed:     s.Failed,
		})
	}
	return out
}

// FromRegistry lists every registered table with its payload type. pathOf,
// when non-nil, supplies the file each table would load from.
func FromRegistry(reg *hub.Registry, pathOf func(name string) string) []RegistrationDTO {
	names := reg.Names()
	out := make([]RegistrationDTO, 0, len(names))
	for _, name := range names {
		dto := RegistrationDTO{Name: name}
		if ctor, ok := reg.Lookup(name); ok {
			dto.Payload = payloadType(ctor())
		}
		if pathOf != nil {
			dto.Path = pathOf(name)
		}
		out = append(out, dto)
	}
	return out
}

// payloadType names the Go type a fresh messager decodes into.
func payloadType(m hub.Messager) string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%T", m.Message())
}
