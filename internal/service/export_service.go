package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kontak-api/internal/models"
	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
	"github.com/noah-isme/kontak-api/pkg/export"
)

type exportEventLister interface {
	ListByPerson(ctx context.Context, personID string) ([]models.Event, error)
}

type exportPersonReader interface {
	FindByID(ctx context.Context, id string) (*models.Person, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type icsRenderer interface {
	Render(name string, events []export.ICSEvent) ([]byte, error)
}

// ExportFormat selects a schedule export encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
	FormatICS ExportFormat = "ics"
)

// ParseExportFormat normalises a format query value.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatICS:
		return FormatICS, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ExportResult is a rendered schedule document.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a person's schedule into downloadable documents.
type ExportService struct {
	persons exportPersonReader
	events  exportEventLister
	csv     csvRenderer
	pdf     pdfRenderer
	ics     icsRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(persons exportPersonReader, events exportEventLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, ics icsRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter("")
	}
	return &ExportService{
		persons: persons,
		events:  events,
		csv:     csv,
		pdf:     pdf,
		ics:     ics,
		logger:  logger,
	}
}

// Generate renders the person's full schedule in the requested format.
func (s *ExportService) Generate(ctx context.Context, personID string, format ExportFormat) (*ExportResult, error) {
	person, err := s.persons.FindByID(ctx, personID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
	}

	events, err := s.events.ListByPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	base := fmt.Sprintf("schedule-%s-%s", slugify(person.Name), time.Now().UTC().Format("20060102"))

	switch format {
	case FormatCSV:
		data, err := s.csv.Render(scheduleDataset(events))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case FormatPDF:
		data, err := s.pdf.Render(scheduleDataset(events), fmt.Sprintf("Schedule for %s", person.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	case FormatICS:
		data, err := s.ics.Render(person.Name, icsEvents(events))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render ics export")
		}
		return &ExportResult{Filename: base + ".ics", ContentType: "text/calendar", Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func scheduleDataset(events []models.Event) export.Dataset {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		enc := e.Encode()
		rows = append(rows, []string{enc.Description, enc.Date, enc.Time, enc.Duration, enc.Recurrence})
	}
	return export.Dataset{
		Headers: []string{"Description", "Date", "Time", "Duration", "Recurrence"},
		Rows:    rows,
	}
}

func icsEvents(events []models.Event) []export.ICSEvent {
	out := make([]export.ICSEvent, 0, len(events))
	for _, e := range events {
		out = append(out, export.ICSEvent{
			UID:     e.ID,
			Summary: e.Description,
			Start:   e.StartDateTime(),
			End:     e.EndDateTime(),
			RRule:   recurrenceRule(e.Recurrence),
		})
	}
	return out
}

// recurrenceRule maps a recurrence kind onto its RRULE equivalent. Monthly
// entries keep iCalendar's own day-of-month handling; consumers that need the
// clamped dates should export expanded occurrences instead.
func recurrenceRule(kind models.RecurrenceKind) string {
	switch kind {
	case models.RecurrenceDaily:
		return "FREQ=DAILY"
	case models.RecurrenceWeekly:
		return "FREQ=WEEKLY"
	case models.RecurrenceBiweekly:
		return "FREQ=WEEKLY;INTERVAL=2"
	case models.RecurrenceMonthly:
		return "FREQ=MONTHLY"
	default:
		return ""
	}
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "person"
	}
	return b.String()
}
