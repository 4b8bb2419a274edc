package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/joefazee/marketcore/app/ledger"
)

// render prints one row per account and returns the number of mismatches.
func render(w io.Writer, reports []*ledger.AuditReport) int {
	table := tablewriter.NewWriter(w)
	table.Header("User", "Username", "Stored", "Replayed", "Version", "Entries", "Status")

	mismatches := 0
	for _, r := range reports {
		status := "OK"
		if !r.Consistent {
			status = "MISMATCH"
			mismatches++
		}
		_ = table.Append(
			r.UserID.String(),
			r.Username,
			r.StoredBalance.StringFixed(2),
			r.ReplayedBalance.StringFixed(2),
			fmt.Sprintf("%d", r.LedgerVersion),
			fmt.Sprintf("%d", r.Entries),
			status,
		)
	}
	_ = table.Render()

	fmt.Fprintf(w, "%d accounts, %d mismatched\n", len(reports), mismatches)
	for _, r := range reports {
		if len(r.Problems) > 0 {
			fmt.Fprintf(w, "  %s: %s\n", r.Username, strings.Join(r.Problems, "; "))
		}
	}
	return mismatches
}
