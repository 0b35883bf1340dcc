package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/yourusername/espinput-cli/internal/models"
	"github.com/yourusername/espinput-cli/internal/state"
	"golang.org/x/sys/unix"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
	loadingColor = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

// FormatStatus renders the status line for cs: loading indicator, then the
// error or success message. Returns "" when there is nothing to show.
func FormatStatus(cs state.ClientState) string {
	var parts []string

	if cs.IsLoading {
		parts = append(parts, loadingColor.Sprint(spinnerGlyph()+" loading"))
	}
	if cs.HasError() {
		parts = append(parts, errorColor.Sprint("error: "+cs.ErrorMessage))
	}
	if cs.HasSuccess() {
		parts = append(parts, successColor.Sprint(cs.SuccessMessage))
	}

	return strings.Join(parts, "  ")
}

// PrintStatus writes the status line for cs, if any
func PrintStatus(w io.Writer, cs state.ClientState) {
	if line := FormatStatus(cs); line != "" {
		fmt.Fprintln(w, line)
	}
}

// PrintItems writes the record table, or a placeholder for an empty list
func PrintItems(w io.Writer, items []models.Record, width int) {
	if len(items) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("(no inputs)"))
		return
	}
	PrintRecordsTable(w, items, width)
}

// PrintState writes the record table followed by the status line
func PrintState(w io.Writer, cs state.ClientState, width int) {
	PrintItems(w, cs.Items, width)
	PrintStatus(w, cs)
}

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal
func TerminalWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 {
		return 80
	}
	return int(ws.Col)
}

func spinnerGlyph() string {
	if supportsUnicode() {
		return "…"
	}
	return "..."
}

// supportsUnicode checks if the terminal supports Unicode
func supportsUnicode() bool {
	// Check LANG and LC_ALL environment variables
	lang := os.Getenv("LANG")
	lcAll := os.Getenv("LC_ALL")

	return strings.Contains(lang, "UTF-8") || strings.Contains(lcAll, "UTF-8")
}
