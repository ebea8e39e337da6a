package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MKhiriev/go-doc-vault/models"
)

// output renders command results as text or JSON on the command's stdout.
type output struct {
	w      io.Writer
	format string
}

func newOutput(cmd *cobra.Command, opts *RootOptions) *output {
	return &output{w: cmd.OutOrStdout(), format: opts.Format}
}

func (o *output) json() bool { return o.format == "json" }

func (o *output) writeJSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printf is silent in JSON mode so stdout stays parseable.
func (o *output) printf(format string, args ...any) {
	if o.json() {
		return
	}
	fmt.Fprintf(o.w, format, args...)
}

func (o *output) stats(s models.VaultStats) error {
	if o.json() {
		return o.writeJSON(s)
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "documents\t%d\n", s.Storage.Count)
	fmt.Fprintf(tw, "plaintext bytes\t%d\n", s.Storage.TotalSize)
	fmt.Fprintf(tw, "encrypted bytes\t%d\n", s.Storage.EncryptedSize)
	for _, typ := range slices.Sorted(maps.Keys(s.Storage.ByType)) {
		fmt.Fprintf(tw, "  %s\t%d\n", typ, s.Storage.ByType[typ])
	}
	fmt.Fprintf(tw, "indexed\t%d\n", s.Indexed)
	if s.Sync != nil {
		fmt.Fprintf(tw, "sync status\t%s\n", s.Sync.Status)
		fmt.Fprintf(tw, "pending changes\t%d\n", s.Sync.Pending)
		if s.Sync.LastSyncTime != nil {
			fmt.Fprintf(tw, "last sync\t%s\n", s.Sync.LastSyncTime.Format("2006-01-02 15:04:05"))
		}
	}
	return tw.Flush()
}

func (o *output) results(results []models.SearchResult) error {
	if o.json() {
		return o.writeJSON(results)
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSCORE\tUPDATED")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n",
			r.Document.ID, r.Document.Type, r.Score, r.Document.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func (o *output) syncState(s models.CRDTState) error {
	if o.json() {
		return o.writeJSON(s)
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "actor\t%s\n", s.ActorID)
	fmt.Fprintf(tw, "clock\t%d\n", s.Clock)
	fmt.Fprintf(tw, "pending\t%d\n", len(s.Changes))
	for _, ch := range s.Changes {
		fmt.Fprintf(tw, "  %d\t%s\t%s\n", ch.Timestamp, ch.Type, ch.ID)
	}
	return tw.Flush()
}
