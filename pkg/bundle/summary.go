package bundle

import (
	"fmt"
	"strings"
	"time"
)

const SummaryFileName = "SUMMARY.txt"

type SummaryInfo struct {
	PlanID        string
	PlanName      string
	Category      string
	Description   string
	DesignerName  string
	CustomerName  string
	CustomerEmail string
	OrderID       string
	Entitlement   string
	GeneratedAt   time.Time
}

type Entry struct {
	Path string
	Size int64
}

type Skipped struct {
	Path   string
	Reason string
}

// RenderSummary produces the plain text summary placed at the archive root.
// The output depends only on its arguments.
func RenderSummary(info SummaryInfo, added []Entry, skipped []Skipped) []byte {
	var b strings.Builder

	b.WriteString("PlanHub download summary\n\n")
	fmt.Fprintf(&b, "Plan: %s\n", info.PlanName)
	fmt.Fprintf(&b, "Plan ID: %s\n", info.PlanID)
	fmt.Fprintf(&b, "Category: %s\n", orDash(info.Category))
	fmt.Fprintf(&b, "Designer: %s\n", orDash(info.DesignerName))
	fmt.Fprintf(&b, "Customer: %s\n", customer(info))
	fmt.Fprintf(&b, "Order: %s\n", orDash(info.OrderID))
	fmt.Fprintf(&b, "Entitlement: %s\n", orDash(info.Entitlement))
	fmt.Fprintf(&b, "Generated: %s\n", info.GeneratedAt.UTC().Format(time.RFC3339))

	b.WriteString("\nDescription:\n")
	b.WriteString(orDash(strings.TrimSpace(info.Description)))
	b.WriteString("\n")

	fmt.Fprintf(&b, "\nFiles (%d):\n", len(added))
	for _, e := range added {
		fmt.Fprintf(&b, "- %s (%d bytes)\n", e.Path, e.Size)
	}

	if len(skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped (%d):\n", len(skipped))
		for _, s := range skipped {
			fmt.Fprintf(&b, "- %s: %s\n", s.Path, s.Reason)
		}
	}

	return []byte(b.String())
}

func customer(info SummaryInfo) string {
	switch {
	case info.CustomerName != "" && info.CustomerEmail != "":
		return fmt.Sprintf("%s <%s>", info.CustomerName, info.CustomerEmail)
	case info.CustomerEmail != "":
		return info.CustomerEmail
	default:
		return orDash(info.CustomerName)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
