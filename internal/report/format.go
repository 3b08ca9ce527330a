package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Format selects how FormatReport renders a report.
type Format string

const (
	FormatCLI  Format = "cli"
	FormatCI   Format = "ci"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for formats other than cli, ci and json.
var ErrUnknownFormat = errors.New("report: unknown format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCLI, FormatCI, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// decoration is the only difference between terminal and PR-comment output.
type decoration struct {
	title    func(string) string
	section  func(string) string
	bold     func(string) string
	markdown bool
}

var cliDecoration = decoration{
	title:   func(s string) string { return color.New(color.Bold, color.FgCyan).Sprint("=== " + s + " ===") },
	section: func(s string) string { return color.New(color.Bold).Sprint(s) + "\n" + strings.Repeat("-", len(s)) },
	bold:    func(s string) string { return color.New(color.Bold).Sprint(s) },
}

var ciDecoration = decoration{
	title:    func(s string) string { return "## " + s },
	section:  func(s string) string { return "### " + s },
	bold:     func(s string) string { return "**" + s + "**" },
	markdown: true,
}

// FormatReport renders a report as cli text, ci markdown or indented json.
func FormatReport(report *models.OptimizationReport, format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal report: %w", err)
		}
		return string(data), nil
	case FormatCLI:
		return render(report, cliDecoration), nil
	case FormatCI:
		return render(report, ciDecoration), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func render(report *models.OptimizationReport, d decoration) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	field := func(label, value string) {
		if d.markdown {
			line("- %s: %s", d.bold(label), value)
			return
		}
		line("  %-22s %s", label+":", value)
	}

	est := report.Estimate

	line("%s", d.title("Gas Optimization Report"))
	line("")
	field("Report ID", report.ID)
	field("Network", report.Network)
	field("Generated", report.GeneratedAt.Format(time.RFC3339))
	field("Optimization score", d.bold(fmt.Sprintf("%d/100", report.OptimizationScore)))
	line("")

	line("%s", d.section("Deployment Estimate"))
	field("Bytecode size", fmt.Sprintf("%d bytes", est.BytecodeSize))
	field("Deployment gas", formatGas(est.DeploymentGas))
	field("Gas price", fmt.Sprintf("%s Gwei (%s)", formatGwei(est.GasPriceUsed), est.Tier))
	field("Cost", fmt.Sprintf("%s ETH (%s wei)", est.CostInEther, est.CostInWei))
	if est.CostInUSD != nil {
		field("Cost (USD)", fmt.Sprintf("$%.2f", *est.CostInUSD))
	}
	line("")

	line("%s", d.section("Gas Breakdown"))
	field("Base transaction", formatGas(est.Breakdown.BaseCost))
	field("Contract creation", formatGas(est.Breakdown.CreationCost))
	field("Code storage", formatGas(est.Breakdown.CodeStorageCost))
	field("Constructor data", formatGas(est.Breakdown.ConstructorDataCost))
	line("")

	if sim := report.Simulation; sim != nil {
		line("%s", d.section("Simulation"))
		if sim.Success {
			field("Status", "success")
			field("Actual gas used", formatGas(sim.ActualGasUsed))
			if sim.DeploymentAddress != nil {
				field("Contract address", *sim.DeploymentAddress)
			}
		} else {
			field("Status", d.bold("failed"))
			field("Error", sim.Error)
		}
		if sim.TransactionHash != "" {
			field("Transaction", sim.TransactionHash)
		}
		if cmp := report.Comparison; cmp != nil {
			field("Estimated gas", formatGas(cmp.EstimatedGas))
			field("Difference", fmt.Sprintf("%+d", cmp.Difference))
			field("Accuracy", fmt.Sprintf("%.2f%%", cmp.AccuracyPercent))
			field("Within tolerance", yesNo(cmp.WithinTolerance))
		}
		line("")
	}

	if nc := report.NetworkComparison; nc != nil {
		line("%s", d.section("Network Comparison"))
		renderComparisonTable(&b, nc, d.markdown)
		field("Cheapest", nc.Cheapest.Network)
		field("Most expensive", nc.MostExpensive.Network)
		savings := nc.SavingsInWei + " wei"
		if nc.SavingsInUSD != nil {
			savings = fmt.Sprintf("$%.2f (%s)", *nc.SavingsInUSD, savings)
		}
		field("Potential savings", savings)
		line("")
	}

	line("%s", d.section("Recommendations"))
	if len(report.Recommendations) == 0 {
		line("No recommendations. The deployment looks efficient.")
	}
	for i, rec := range report.Recommendations {
		line("%d. [%s] %s", i+1, strings.ToUpper(string(rec.Severity)), d.bold(rec.Title))
		line("   %s", rec.Description)
		if rec.PotentialSavings != "" {
			line("   Potential savings: %s", rec.PotentialSavings)
		}
		for _, item := range rec.ActionItems {
			line("   - %s", item)
		}
	}

	if len(report.Warnings) > 0 {
		line("")
		line("%s", d.section("Warnings"))
		for _, w := range report.Warnings {
			line("- %s", w)
		}
	}

	return b.String()
}

func renderComparisonTable(b *strings.Builder, nc *models.NetworkComparison, markdown bool) {
	table := tablewriter.NewWriter(b)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Network", "Gas Price (Gwei)", "Gas", "Cost (ETH)", "Cost (USD)"})
	if markdown {
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
	}
	for _, est := range nc.Estimates {
		usd := "-"
		if est.CostInUSD != nil {
			usd = fmt.Sprintf("$%.2f", *est.CostInUSD)
		}
		table.Append([]string{est.Network, formatGwei(est.GasPriceUsed), formatGas(est.DeploymentGas), est.CostInEther, usd})
	}
	table.Render()
	if markdown {
		b.WriteString("\n")
	}
}

func formatGas(gas uint64) string {
	s := strconv.FormatUint(gas, 10)
	var out strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(r)
	}
	return out.String()
}

func formatGwei(gwei float64) string {
	return strconv.FormatFloat(gwei, 'f', -1, 64)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
