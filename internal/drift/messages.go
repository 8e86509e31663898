package drift

import (
	"fmt"
	"strings"
)

// FormatResult formats a drift detection result for CLI output.
func FormatResult(result *Result) string {
	if result == nil {
		return "No drift detection result available."
	}

	if !result.HasDrift {
		return FormatNoDrift(result)
	}

	return FormatDrift(result)
}

// FormatNoDrift formats a successful (no drift) result.
func FormatNoDrift(result *Result) string {
	var b strings.Builder

	b.WriteString("Schema check passed\n\n")
	fmt.Fprintf(&b, "  Tables:       %d\n", result.Tables)
	fmt.Fprintf(&b, "  Schema hash:  %s\n", truncateHash(result.ExpectedHash))
	b.WriteString("\n  Database schema matches the last applied definitions.\n")

	return b.String()
}

// FormatDrift formats a drift detection result with differences.
func FormatDrift(result *Result) string {
	var b strings.Builder

	b.WriteString("Schema drift detected\n\n")
	fmt.Fprintf(&b, "  Expected hash: %s\n", truncateHash(result.ExpectedHash))
	fmt.Fprintf(&b, "  Actual hash:   %s\n", truncateHash(result.ActualHash))
	b.WriteString("\n")

	comp := result.Comparison

	if len(comp.MissingTables) > 0 {
		b.WriteString("  Missing tables (defined but not in database):\n")
		for _, name := range comp.MissingTables {
			fmt.Fprintf(&b, "    - %s\n", name)
		}
		b.WriteString("\n")
	}

	if len(comp.TableDiffs) > 0 {
		b.WriteString("  Modified tables:\n")
		for _, name := range comp.ModifiedTables() {
			fmt.Fprintf(&b, "\n    %s:\n", name)
			formatTableDiff(&b, comp.TableDiffs[name], "      ")
		}
	}

	b.WriteString("\nFix:\n")
	b.WriteString("  The database was changed outside tablegate. Revert the manual change,\n")
	b.WriteString("  or change a definition so the next migrate run reconciles it.\n")

	return b.String()
}

// formatTableDiff formats differences for a single table.
func formatTableDiff(b *strings.Builder, diff *TableDiff, indent string) {
	writeList(b, indent, "Columns missing from DB:", "-", diff.MissingColumns)
	writeList(b, indent, "Columns only in DB:", "+", diff.ExtraColumns)
	writeList(b, indent, "Columns with different definitions:", "~", diff.ModifiedColumns)
	writeList(b, indent, "Constraints missing from DB:", "-", diff.MissingConstraints)
	writeList(b, indent, "Constraints only in DB:", "+", diff.ExtraConstraints)
	writeList(b, indent, "Constraints with different definitions:", "~", diff.ModifiedConstraints)
}

func writeList(b *strings.Builder, indent, title, marker string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s%s\n", indent, title)
	for _, item := range items {
		fmt.Fprintf(b, "%s  %s %s\n", indent, marker, item)
	}
}

// FormatSummary formats a drift summary for brief output.
func FormatSummary(summary *Summary) string {
	if summary == nil {
		return "No summary available."
	}

	if summary.MissingTables+summary.ModifiedTables == 0 {
		return fmt.Sprintf("No drift detected. %d tables in sync.", summary.Tables)
	}

	var parts []string
	if summary.MissingTables > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", summary.MissingTables))
	}
	if summary.ModifiedTables > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", summary.ModifiedTables))
	}

	return fmt.Sprintf("Drift detected: %s", strings.Join(parts, ", "))
}

// FormatQuickStatus formats a quick status line for drift detection.
func FormatQuickStatus(hasDrift bool, expectedHash, actualHash string) string {
	if !hasDrift {
		return fmt.Sprintf("OK  %s", truncateHash(expectedHash))
	}
	return fmt.Sprintf("DRIFT  expected: %s  actual: %s",
		truncateHash(expectedHash), truncateHash(actualHash))
}

// truncateHash returns the first 12 characters of a hash for display.
func truncateHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
