package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
)

var (
	labelColor = color.New(color.FgCyan)
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	errorColor.Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, err)
}

func printWarning(w io.Writer, msg string) {
	warnColor.Fprintf(w, "warning: %s\n", msg)
}

func printField(w io.Writer, label string, value any) {
	labelColor.Fprintf(w, "%-20s", label+":")
	fmt.Fprintf(w, " %v\n", value)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatUSD(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

// outputFormat parses --format. Colors are disabled for ci and json output.
func outputFormat(cmd *cobra.Command) (report.Format, error) {
	raw, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(raw)
	if err != nil {
		return "", err
	}
	if format != report.FormatCLI {
		color.NoColor = true
	}
	return format, nil
}
