package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	// Writer receives stdout-bound output; nil means os.Stdout
	Writer io.Writer
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// Table is one titled grid of a report
type Table struct {
	Name   string
	Title  string
	Header []string
	Rows   [][]string
	// Footer is an optional totals row rendered after the data rows
	Footer []string
}

// Report is what a command hands to Generate. Data is the value encoded for
// json output; Tables drive every other format.
type Report struct {
	Name   string
	Title  string
	Tables []Table
	Notes  []string
	Data   interface{}
}

// Generate creates output in the specified format
func Generate(report Report, config Config) error {
	switch config.Format {
	case "", "text":
		return generateTextOutput(report, config)
	case "json":
		return generateJSONOutput(report, config)
	case "csv":
		return generateCSVOutput(report, config)
	case "xlsx":
		return generateXLSXOutput(report, config)
	case "html":
		return generateHTMLOutput(report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// generateTextOutput writes aligned plain-text tables
func generateTextOutput(report Report, config Config) error {
	w := config.writer()
	if report.Title != "" {
		fmt.Fprintf(w, "%s\n%s\n\n", report.Title, strings.Repeat("=", len(report.Title)))
	}

	for _, table := range report.Tables {
		if table.Title != "" {
			fmt.Fprintf(w, "%s\n", table.Title)
		}
		if len(table.Rows) == 0 {
			fmt.Fprintf(w, "  (none)\n\n")
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(table.Header, "\t"))
		fmt.Fprintln(tw, strings.Join(dashes(table.Header), "\t"))
		for _, row := range table.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if len(table.Footer) > 0 {
			fmt.Fprintln(tw, strings.Join(dashes(table.Header), "\t"))
			fmt.Fprintln(tw, strings.Join(table.Footer, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("failed to write table %s: %w", table.Name, err)
		}
		fmt.Fprintln(w)
	}

	for _, note := range report.Notes {
		fmt.Fprintf(w, "%s\n", note)
	}
	return nil
}

func dashes(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.Repeat("-", len(h))
	}
	return out
}

// generateJSONOutput creates JSON output
func generateJSONOutput(report Report, config Config) error {
	data := report.Data
	if data == nil {
		data = report.Tables
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.writer(), string(jsonData))
		return nil
	}

	filename, err := outputPath(config, report.Name+".json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes one CSV file per table, or the first table to
// stdout when no output directory is set
func generateCSVOutput(report Report, config Config) error {
	if config.OutputDir == "" {
		if len(report.Tables) == 0 {
			return nil
		}
		return writeCSV(config.writer(), report.Tables[0])
	}

	for _, table := range report.Tables {
		filename, err := outputPath(config, fmt.Sprintf("%s_%s.csv", report.Name, table.Name))
		if err != nil {
			return err
		}
		file, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", filename, err)
		}
		err = writeCSV(file, table)
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", filename, err)
		}
		if config.Verbose {
			fmt.Fprintf(config.writer(), "CSV results saved to: %s\n", filename)
		}
	}
	return nil
}

func writeCSV(w io.Writer, table Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return err
	}
	if len(table.Footer) > 0 {
		if err := cw.Write(table.Footer); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func outputPath(config Config, name string) (string, error) {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(config.OutputDir, name), nil
}
