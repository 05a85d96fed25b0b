package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/tesserabio/tessera-cli/pkg/client"
)

func WriteApplicationTable(w io.Writer, apps []client.Application) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tVERSION\tMODALITY\tCREATED")
	for _, a := range apps {
		modality := a.Modality
		if modality == "" {
			modality = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Version, modality, formatTime(a.CreatedAt))
	}
	_ = tw.Flush()
}

func WriteRunTable(w io.Writer, runs []client.Run) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tAPPLICATION\tSTATE\tITEMS\tCREATED\tFINISHED")
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = formatTime(*r.FinishedAt)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.ApplicationID, r.State, r.ItemCount, formatTime(r.CreatedAt), finished)
	}
	_ = tw.Flush()
}

// StatusSummary is what the status command renders: authentication
// state only, never token values.
type StatusSummary struct {
	Environment    string `json:"environment" yaml:"environment"`
	Account        string `json:"account" yaml:"account"`
	State          string `json:"state" yaml:"state"`
	StorageBackend string `json:"storageBackend,omitempty" yaml:"storageBackend,omitempty"`
	TokenExpiry    string `json:"tokenExpiry,omitempty" yaml:"tokenExpiry,omitempty"`
	Renewable      bool   `json:"renewable" yaml:"renewable"`
}

func WriteStatusTable(w io.Writer, s StatusSummary) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Environment:\t%s\n", s.Environment)
	_, _ = fmt.Fprintf(tw, "Account:\t%s\n", s.Account)
	_, _ = fmt.Fprintf(tw, "State:\t%s\n", s.State)
	if s.StorageBackend != "" {
		_, _ = fmt.Fprintf(tw, "Storage:\t%s\n", s.StorageBackend)
	}
	if s.TokenExpiry != "" {
		_, _ = fmt.Fprintf(tw, "Token expires:\t%s\n", s.TokenExpiry)
	}
	_, _ = fmt.Fprintf(tw, "Renewable:\t%v\n", s.Renewable)
	_ = tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
