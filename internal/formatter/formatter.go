// package formatter renders engine responses and download history as text, Markdown, CSV, JSON or styled terminal output
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/tasks"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	indexStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	tokenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	promoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Italic(true)
)

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	d := time.Duration(seconds) * time.Second
	h, m, s := int(d.Hours()), int(d.Minutes())%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ResponseToText renders a response as plain text with one numbered line per row and its action tokens beneath.
func ResponseToText(resp *tasks.Response) []byte {
	var buf bytes.Buffer

	buf.WriteString(resp.Text + "\n")
	if len(resp.Rows) > 0 {
		buf.WriteString("\n")
	}
	for i, row := range resp.Rows {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, row.Label))
		for _, action := range row.Actions {
			buf.WriteString(fmt.Sprintf("   %s: %s\n", action.Label, action.Token))
		}
	}

	if resp.Artifact != nil {
		buf.WriteString(fmt.Sprintf("\n%s [%s]\n", resp.Artifact.Title, FormatDuration(resp.Artifact.Duration)))
	}
	if resp.Promotion != "" {
		buf.WriteString("\n" + resp.Promotion + "\n")
	}
	return buf.Bytes()
}

// ResponseToMarkdown renders a response as a Markdown list.
func ResponseToMarkdown(resp *tasks.Response) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("## %s\n\n", resp.Text))
	for i, row := range resp.Rows {
		actions := make([]string, 0, len(row.Actions))
		for _, a := range row.Actions {
			actions = append(actions, fmt.Sprintf("%s `%s`", a.Label, a.Token))
		}
		buf.WriteString(fmt.Sprintf("%d. **%s** %s\n", i+1, row.Label, strings.Join(actions, " ")))
	}
	if resp.Promotion != "" {
		buf.WriteString(fmt.Sprintf("\n> %s\n", resp.Promotion))
	}
	return buf.Bytes()
}

// ResponseToStyled renders a response for a color terminal.
func ResponseToStyled(resp *tasks.Response) string {
	var b strings.Builder

	if resp.Failed() {
		b.WriteString(errStyle.Render(resp.Text))
	} else {
		b.WriteString(headerStyle.Render(resp.Text))
	}
	b.WriteString("\n")

	for i, row := range resp.Rows {
		b.WriteString(fmt.Sprintf("%s %s\n", indexStyle.Render(fmt.Sprintf("%2d.", i+1)), row.Label))
		for _, action := range row.Actions {
			b.WriteString(fmt.Sprintf("    %s %s\n", action.Label, tokenStyle.Render(action.Token)))
		}
	}
	if resp.Promotion != "" {
		b.WriteString("\n" + promoStyle.Render(resp.Promotion) + "\n")
	}
	return b.String()
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// HistoryToCSV converts download records to CSV with columns: Artist, Title, Downloaded At
func HistoryToCSV(records []models.DownloadRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Artist", "Title", "Downloaded At"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range records {
		if err := writer.Write([]string{rec.Artist, rec.Title, rec.DownloadedAt.UTC().Format(time.RFC3339)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// HistoryToText converts download records to a numbered list.
func HistoryToText(records []models.DownloadRecord) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Downloads: %d\n\n", len(records)))
	for i, rec := range records {
		buf.WriteString(fmt.Sprintf("%d. %s - %s (%s)\n", i+1, rec.Artist, rec.Title, rec.DownloadedAt.Local().Format("2006-01-02 15:04")))
	}
	return buf.Bytes()
}

// WriteHistoryExport writes records to path in the given format: csv, json or text.
func WriteHistoryExport(records []models.DownloadRecord, path, format string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(format) {
	case "csv":
		data, err = HistoryToCSV(records)
	case "json":
		data, err = MarshalJSON(records, true)
	case "text", "txt", "":
		data = HistoryToText(records)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
