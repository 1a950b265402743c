// Package output renders scan results for terminals and files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"

	"github.com/ostrand/lansweep/internal/scan"
)

// WriteTable renders open-port entries as an aligned table. Entries
// are sorted by address then port for stable display; the engine
// itself reports them in completion order.
func WriteTable(w io.Writer, results scan.Results) {
	entries := make([]scan.Entry, len(results.Entries))
	copy(entries, results.Entries)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Address != entries[j].Address {
			return entries[i].Address < entries[j].Address
		}
		return entries[i].Port < entries[j].Port
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Address", "Port", "Service", "Latency", "Banner"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	for _, e := range entries {
		table.Append([]string{
			e.Address,
			fmt.Sprintf("%d", e.Port),
			e.Service,
			fmt.Sprintf("%dms", e.LatencyMS),
			truncate(e.Banner, 60),
		})
	}
	table.Render()

	fmt.Fprintf(w, "\n%d open, %d scanned of %d\n",
		results.Open, results.Scanned, results.Total)
}

// WriteJSON writes the full results as indented JSON.
func WriteJSON(w io.Writer, results scan.Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// SaveJSON persists results to a file as indented JSON.
func SaveJSON(path string, results scan.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, results); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	// Back up so a multibyte rune is never split.
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
