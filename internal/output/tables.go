package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/yourusername/espinput-cli/internal/models"
)

const (
	minMessageWidth = 20
	// ID and timestamp columns plus borders
	fixedColumnsWidth = 36
)

// PrintRecordsTable prints records in a table format, sized to width columns
func PrintRecordsTable(w io.Writer, records []models.Record, width int) {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Message", "Timestamp")

	msgWidth := width - fixedColumnsWidth
	if msgWidth < minMessageWidth {
		msgWidth = minMessageWidth
	}

	for _, rec := range records {
		table.Append(
			fmt.Sprintf("%d", rec.ID),
			truncate(rec.Message, msgWidth),
			rec.Timestamp,
		)
	}

	table.Render()
}

// SortedByID returns a copy of records ordered by ID
func SortedByID(records []models.Record) []models.Record {
	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// PrintRecordDetail prints detailed information about a single record
func PrintRecordDetail(w io.Writer, rec models.Record) {
	fmt.Fprintf(w, "ID: %d\n", rec.ID)
	fmt.Fprintf(w, "Message: %s\n", rec.Message)
	fmt.Fprintf(w, "Timestamp: %s\n", rec.Timestamp)
}

// Helper functions

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
