// Package realtime pushes row change events to websocket subscribers.
//
// Clients subscribe to a table with an equality filter such as
// "conversation_id=eq.7" and receive every INSERT or UPDATE event whose
// keys match.
package realtime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Event types.
const (
	Insert = "INSERT"
	Update = "UPDATE"
)

// Tables that can be subscribed to, with their filterable columns.
var tableColumns = map[string][]string{
	"messages":      {"conversation_id"},
	"conversations": {"id", "item_id", "owner_id", "requester_id"},
}

// Event is a single row change.
type Event struct {
	Type   string `json:"type"`
	Table  string `json:"table"`
	Record any    `json:"record"`

	// Keys holds the filterable column values of the record.
	Keys map[string]int64 `json:"-"`
}

// Filter is an equality filter on one column.
type Filter struct {
	Column string
	Value  int64
}

func (f Filter) String() string {
	return f.Column + "=eq." + strconv.FormatInt(f.Value, 10)
}

var errBadFilter = errors.New("filter must look like column=eq.value")

// ParseFilter parses a "column=eq.value" filter for table.
func ParseFilter(table, s string) (Filter, error) {
	columns, ok := tableColumns[table]
	if !ok {
		return Filter{}, fmt.Errorf("unknown table %q", table)
	}

	column, rest, ok := strings.Cut(s, "=")
	if !ok {
		return Filter{}, errBadFilter
	}
	raw, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return Filter{}, errBadFilter
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return Filter{}, errBadFilter
	}

	for _, c := range columns {
		if c == column {
			return Filter{Column: column, Value: value}, nil
		}
	}
	return Filter{}, fmt.Errorf("table %q cannot be filtered by %q", table, column)
}

type subscription struct {
	table  string
	filter Filter
}

func (s subscription) key() string {
	return s.table + ":" + s.filter.String()
}

func (s subscription) matches(ev Event) bool {
	if s.table != ev.Table {
		return false
	}
	v, ok := ev.Keys[s.filter.Column]
	return ok && v == s.filter.Value
}
