// Package report renders orchestration results for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/suno-tools/sunograb/internal/run"
)

// WriteTable renders a human-readable summary.
func WriteTable(w io.Writer, results []run.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tSTATUS\tCREDITS\tTIER\tERROR")
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		credits := "-"
		if r.Credits != nil {
			credits = fmt.Sprintf("%g", *r.Credits)
		}
		tier := "-"
		if r.Tier != nil {
			tier = *r.Tier
		}
		errCode := "-"
		if r.Error != "" {
			errCode = string(r.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Email, status, credits, tier, errCode)
	}
	return tw.Flush()
}

// WriteJSON renders the result list as indented JSON.
func WriteJSON(w io.Writer, results []run.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
