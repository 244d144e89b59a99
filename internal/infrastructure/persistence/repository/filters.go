package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// whereBuilder accumulates AND-ed predicates and their arguments
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// addVisibility restricts rows to those the actor may see
func (w *whereBuilder) addVisibility(vis port.Visibility) {
	if vis.All {
		return
	}
	if vis.RequesterID != "" {
		w.add("requester_id = ?", vis.RequesterID)
		return
	}

	var parts []string
	var args []interface{}
	if len(vis.Statuses) > 0 {
		parts = append(parts, "status IN ("+placeholders(len(vis.Statuses))+")")
		for _, s := range vis.Statuses {
			args = append(args, string(s))
		}
	}
	if vis.RejectedByRole != "" {
		parts = append(parts, "(status = ? AND rejected_by_role = ?)")
		args = append(args, string(workflow.StatusRejected), string(vis.RejectedByRole))
	}
	if len(parts) == 0 {
		w.add("1 = 0")
		return
	}
	w.add("("+strings.Join(parts, " OR ")+")", args...)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// likePattern escapes LIKE wildcards in a user search term
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func boolPtr(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	b := nb.Bool
	return &b
}
