package etl

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/justestif/sparkify-etl/internal/extract"
)

// Report summarizes a pipeline run.
type Report struct {
	RunID       uuid.UUID
	Started     time.Time
	Finished    time.Time
	FailedPhase string // empty when the run completed

	Extracts []extract.Stats
	Loads    []LoadStats
}

// Inserted returns the number of rows written to table.
func (r *Report) Inserted(table string) int {
	for _, st := range r.Loads {
		if st.Table == table {
			return st.Inserted
		}
	}
	return 0
}

// WriteTable renders the report as two text tables.
func (r *Report) WriteTable(w io.Writer) error {
	status := "completed"
	if r.FailedPhase != "" {
		status = "failed in " + r.FailedPhase
	}
	if _, err := fmt.Fprintf(w, "Run %s %s in %s\n\n", r.RunID, status, r.Finished.Sub(r.Started).Round(time.Millisecond)); err != nil {
		return err
	}

	extracts := tablewriter.NewWriter(w)
	extracts.Header("Source", "Files", "Records", "Skipped")
	for _, st := range r.Extracts {
		if err := extracts.Append([]string{st.Source, count(st.Files), count(st.Records), count(st.Skipped)}); err != nil {
			return err
		}
	}
	if err := extracts.Render(); err != nil {
		return err
	}

	loads := tablewriter.NewWriter(w)
	loads.Header("Table", "Seen", "Inserted", "Duplicates", "Invalid", "Failed")
	for _, st := range r.Loads {
		if err := loads.Append([]string{
			st.Table,
			count(st.Seen),
			count(st.Inserted),
			count(st.Duplicates),
			count(st.Invalid),
			count(st.Failed),
		}); err != nil {
			return err
		}
	}
	return loads.Render()
}

func count(n int) string {
	return humanize.Comma(int64(n))
}
