package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/lineup/internal/jobs"
	"github.com/agentstation/lineup/pkg/catalogs"
	"github.com/agentstation/lineup/pkg/differ"
	"github.com/agentstation/lineup/pkg/publish"
	pkgsync "github.com/agentstation/lineup/pkg/sync"
	"github.com/agentstation/lineup/pkg/types"
)

// RawsTable lists raw records.
func RawsTable(raws []catalogs.RawRecord, total int64) Data {
	rows := make([][]string, 0, len(raws))
	for _, r := range raws {
		rows = append(rows, []string{
			uintStr(r.ID),
			string(r.EntityType),
			string(r.Source),
			r.SourceID,
			r.City,
			r.Label,
			strconv.Itoa(r.Version),
			changesMark(r.HasChanges, r.Dismissed),
		})
	}
	return Data{
		Headers:         []string{"ID", "Type", "Source", "Source ID", "City", "Label", "Version", "Changes"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignLeft},
		Footer:          footer(len(raws), total),
	}
}

// RawTable shows one raw record field by field.
func RawTable(r *catalogs.RawRecord) Data {
	rows := [][]string{
		{"id", uintStr(r.ID)},
		{"source", string(r.Source) + " / " + r.SourceID},
		{"version", fmt.Sprintf("%d (synced %d)", r.Version, r.SyncedVersion)},
		{"changes", changesMark(r.HasChanges, r.Dismissed)},
	}
	if r.Pending() {
		changed := make([]string, 0)
		for _, f := range r.ChangedFields() {
			changed = append(changed, string(f))
		}
		rows = append(rows, []string{"unfolded", strings.Join(changed, ", ")})
	}
	data := r.Data()
	for _, f := range types.FieldsOf(r.EntityType) {
		if v := data.Get(f); v != "" {
			rows = append(rows, []string{string(f), v})
		}
	}
	return Data{Headers: []string{"Field", "Value"}, Rows: rows}
}

// CanonicalsTable lists canonical records.
func CanonicalsTable(recs []catalogs.Canonical, total int64) Data {
	rows := make([][]string, 0, len(recs))
	for _, c := range recs {
		state := ""
		if e, ok := c.(*catalogs.Event); ok {
			state = string(e.State)
		}
		rows = append(rows, []string{
			uintStr(c.Key()),
			string(c.Kind()),
			c.Label(),
			c.Scope(),
			state,
			yesNo(c.Pending()),
		})
	}
	return Data{
		Headers:         []string{"ID", "Type", "Label", "City", "State", "Pending"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight},
		Footer:          footer(len(recs), total),
	}
}

// CanonicalTable shows one canonical record with the owner of each field
// and its links.
func CanonicalTable(c catalogs.Canonical, links []catalogs.Link) Data {
	rows := [][]string{{"id", uintStr(c.Key()), ""}}
	if e, ok := c.(*catalogs.Event); ok {
		rows = append(rows, []string{"state", string(e.State), ""})
	}
	for _, f := range types.FieldsOf(c.Kind()) {
		if v := c.Value(f); v != "" {
			rows = append(rows, []string{string(f), v, string(c.Owner(f))})
		}
	}
	for _, l := range links {
		role := "link"
		if l.IsPrimary {
			role = "primary link"
		}
		rows = append(rows, []string{role, fmt.Sprintf("raw %d (%s)", l.RawID, l.Source), fmt.Sprintf("%.2f", l.Confidence)})
	}
	return Data{Headers: []string{"Field", "Value", "Owner"}, Rows: rows}
}

// ChangesTable lists the pending changes of a raw record.
func ChangesTable(cs *differ.Changeset) Data {
	rows := make([][]string, 0, len(cs.Changes))
	for _, ch := range cs.Changes {
		rows = append(rows, []string{string(ch.Field), string(ch.Type), ch.Old, ch.New})
	}
	return Data{Headers: []string{"Field", "Change", "Current", "Incoming"}, Rows: rows}
}

// JobTable shows one sync job.
func JobTable(s jobs.Snapshot) Data {
	rows := [][]string{
		{"id", s.ID},
		{"status", string(s.Status)},
		{"phase", string(s.Progress.Phase)},
		{"progress", fmt.Sprintf("%.0f%% (%d/%d)", s.Progress.Percent, s.Progress.Done, s.Progress.Total)},
		{"started", s.StartedAt.Format(time.RFC3339)},
	}
	if s.Progress.City != "" {
		rows = append(rows, []string{"current", s.Progress.City + " / " + s.Progress.Source})
	}
	if s.FinishedAt != nil {
		rows = append(rows, []string{"finished", s.FinishedAt.Format(time.RFC3339)})
	}
	if s.Result != nil {
		rows = append(rows, []string{"result", s.Result.Summary()})
		for _, f := range s.Result.FailedSources() {
			rows = append(rows, []string{"failed", f.City + " / " + f.Source + ": " + f.Error})
		}
	}
	if s.Error != "" {
		rows = append(rows, []string{"error", s.Error})
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

// JobsTable lists sync jobs.
func JobsTable(list []jobs.Snapshot) Data {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		finished := ""
		if s.FinishedAt != nil {
			finished = s.FinishedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{s.ID, string(s.Status), s.StartedAt.Format(time.RFC3339), finished, s.Error})
	}
	return Data{Headers: []string{"ID", "Status", "Started", "Finished", "Error"}, Rows: rows}
}

// TransitionsTable lists state transitions.
func TransitionsTable(list []catalogs.StateTransition) Data {
	rows := make([][]string, 0, len(list))
	for _, t := range list {
		rows = append(rows, []string{
			t.CreatedAt.Format(time.RFC3339),
			uintStr(t.EventID),
			string(t.From),
			string(t.To),
			t.Actor,
			t.Reason,
		})
	}
	return Data{Headers: []string{"At", "Event", "From", "To", "Actor", "Reason"}, Rows: rows}
}

// BulkTable lists the outcome of a bulk transition.
func BulkTable(results []publish.BulkResult) Data {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		outcome := "ok"
		if r.Error != "" {
			outcome = r.Error
		}
		rows = append(rows, []string{uintStr(r.EventID), outcome})
	}
	return Data{Headers: []string{"Event", "Outcome"}, Rows: rows}
}

// DedupeTable lists merge counts per entity type.
func DedupeTable(stats map[types.EntityType]*pkgsync.DedupeStats) Data {
	rows := make([][]string, 0, len(stats))
	for _, kind := range types.EntityTypes() {
		st, ok := stats[kind]
		if !ok || st == nil {
			continue
		}
		rows = append(rows, []string{
			string(kind),
			strconv.Itoa(st.Passes),
			strconv.Itoa(st.Merged),
			strconv.Itoa(st.Conflicts),
		})
	}
	return Data{
		Headers:         []string{"Type", "Passes", "Merged", "Conflicts"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight},
	}
}

// SweepTable lists the events an expiry sweep rejected.
func SweepTable(res *publish.SweepResult) Data {
	rows := make([][]string, 0, len(res.Rejected)+len(res.Errors))
	for _, id := range res.Rejected {
		rows = append(rows, []string{uintStr(id), string(types.StateRejected)})
	}
	for _, e := range res.Errors {
		rows = append(rows, []string{"", e})
	}
	return Data{
		Headers: []string{"Event", "Outcome"},
		Rows:    rows,
		Footer:  fmt.Sprintf("examined %d, rejected %d", res.Examined, len(res.Rejected)),
	}
}

func uintStr(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return ""
}

func changesMark(has, dismissed bool) string {
	switch {
	case has && dismissed:
		return "dismissed"
	case has:
		return "pending"
	default:
		return ""
	}
}

func footer(shown int, total int64) string {
	if int64(shown) == total {
		return ""
	}
	return fmt.Sprintf("showing %d of %d", shown, total)
}
