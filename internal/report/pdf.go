// Package report renders appointment reports as PDF documents.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/example/agenda-booking/internal/application"
)

const (
	title      = "Relatório de Agendamentos"
	emptyLabel = "Nenhum agendamento."
)

type column struct {
	header string
	width  float64
	value  func(application.Appointment) string
}

var columns = []column{
	{header: "Data", width: 24, value: func(a application.Appointment) string { return application.FormatReportDate(a.Date) }},
	{header: "Horário", width: 18, value: func(a application.Appointment) string { return a.Time }},
	{header: "Nome", width: 60, value: func(a application.Appointment) string { return a.Name }},
	{header: "Serviço", width: 50, value: func(a application.Appointment) string { return a.Service }},
	{header: "Telefone", width: 38, value: func(a application.Appointment) string { return a.Phone }},
}

// RenderPDF writes report to w as an A4 portrait document with one table per
// agenda. Timestamps are shown in loc, or UTC when loc is nil.
func RenderPDF(w io.Writer, report application.Report, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	generated := report.GeneratedAt.In(loc).Format("02/01/2006 15:04")
	pdf.CellFormat(0, 6, tr("Gerado em "+generated), "", 1, "L", false, 0, "")
	if period := periodLine(report.From, report.To); period != "" {
		pdf.CellFormat(0, 6, tr(period), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Total: %d", report.Total)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, section := range report.Sections {
		writeSection(pdf, tr, section)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return pdf.Output(w)
}

func writeSection(pdf *gofpdf.Fpdf, tr func(string) string, section application.ReportSection) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, tr(section.AgendaName), "", 1, "L", false, 0, "")
	if strings.TrimSpace(section.Address) != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, tr(section.Address), "", 1, "L", false, 0, "")
	}

	if len(section.Appointments) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, tr(emptyLabel), "", 1, "L", false, 0, "")
		pdf.Ln(3)
		return
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range columns {
		pdf.CellFormat(col.width, 7, tr(col.header), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, appointment := range section.Appointments {
		for _, col := range columns {
			pdf.CellFormat(col.width, 6, fit(pdf, tr(col.value(appointment)), col.width), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func periodLine(from, to string) string {
	switch {
	case from != "" && to != "":
		return "Período: " + application.FormatReportDate(from) + " a " + application.FormatReportDate(to)
	case from != "":
		return "A partir de " + application.FormatReportDate(from)
	case to != "":
		return "Até " + application.FormatReportDate(to)
	default:
		return ""
	}
}

// fit truncates value so it stays inside a cell of the given width. value
// must already be translated to the font's single byte encoding.
func fit(pdf *gofpdf.Fpdf, value string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(value) <= limit {
		return value
	}
	cut := len(value)
	for cut > 0 && pdf.GetStringWidth(value[:cut]+"...") > limit {
		cut--
	}
	return value[:cut] + "..."
}
