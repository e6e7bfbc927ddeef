// Package soql builds Socrata SoQL statements from fixed clauses and
// explicitly escaped values. Query text is never assembled by interpolating
// raw data: every date, string or id list passes through one of the typed
// escape helpers before it reaches a clause.
package soql

import (
	"strconv"
	"strings"
	"time"
)

// Statement is an ordered sequence of query stages. Stages beyond the first
// are chained with the SoQL pipe operator and aggregate the previous stage's
// output.
type Statement struct {
	stages []*stage
}

type stage struct {
	distinct bool
	selects  []string
	wheres   []string
	groupBy  []string
	orderBy  []string
	limit    int
}

// New starts a statement with a single empty stage.
func New() *Statement {
	return &Statement{stages: []*stage{{}}}
}

func (s *Statement) current() *stage {
	return s.stages[len(s.stages)-1]
}

// Distinct marks the current stage's select as SELECT DISTINCT.
func (s *Statement) Distinct() *Statement {
	s.current().distinct = true
	return s
}

// Select appends select expressions to the current stage.
func (s *Statement) Select(exprs ...string) *Statement {
	s.current().selects = append(s.current().selects, exprs...)
	return s
}

// Where appends conditions to the current stage; conditions are joined with
// AND. Values inside a condition must already be escaped via Quote, Time,
// Ints or Strings.
func (s *Statement) Where(conds ...string) *Statement {
	s.current().wheres = append(s.current().wheres, conds...)
	return s
}

// GroupBy appends grouping columns to the current stage.
func (s *Statement) GroupBy(cols ...string) *Statement {
	s.current().groupBy = append(s.current().groupBy, cols...)
	return s
}

// OrderBy appends ordering expressions to the current stage.
func (s *Statement) OrderBy(exprs ...string) *Statement {
	s.current().orderBy = append(s.current().orderBy, exprs...)
	return s
}

// Limit caps the current stage's row count.
func (s *Statement) Limit(n int) *Statement {
	s.current().limit = n
	return s
}

// Pipe closes the current stage and starts a new one chained with |>.
func (s *Statement) Pipe() *Statement {
	s.stages = append(s.stages, &stage{})
	return s
}

// String renders the statement as a single line of SoQL.
func (s *Statement) String() string {
	parts := make([]string, 0, len(s.stages))
	for _, st := range s.stages {
		parts = append(parts, st.render())
	}
	return strings.Join(parts, " |> ")
}

func (st *stage) render() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if st.distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(st.selects, ", "))
	if len(st.wheres) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(st.wheres, " AND "))
	}
	if len(st.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(st.groupBy, ", "))
	}
	if len(st.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(st.orderBy, ", "))
	}
	if st.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(st.limit))
	}
	return b.String()
}

// Quote escapes an arbitrary string as a SoQL single-quoted literal.
func Quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// Time escapes a timestamp as a quoted floating-timestamp literal at date
// granularity, the form the trip datasets index on.
func Time(t time.Time) string {
	return Quote(t.Format("2006-01-02"))
}

// Ints renders an integer list for use inside IN (...).
func Ints(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Strings renders a quoted string list for use inside IN (...).
func Strings(vals []string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = Quote(v)
	}
	return strings.Join(parts, ", ")
}
