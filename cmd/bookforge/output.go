package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
)

var (
	outputFormat string // "table", "json", "raw"
	outputField  string // for -field=key
)

// printResult outputs data in the chosen format.
func printResult(data map[string]any) {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(data) //nolint:errcheck
	case "raw":
		if outputField != "" {
			if v, ok := data[outputField]; ok {
				fmt.Println(v)
			}
		} else {
			for k, v := range data {
				fmt.Printf("%s=%v\n", k, v)
			}
		}
	default: // table
		printTable(data)
	}
}

func printTable(data map[string]any) {
	// Collection responses (books, generation records, audit entries)
	// render as one row per item.
	if rows, name, ok := singleCollection(data); ok {
		printRows(name, rows)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, k := range sortedKeys(data) {
		v := data[k]
		switch val := v.(type) {
		case map[string]any:
			fmt.Fprintf(w, "%s\t\n", strings.ToUpper(k))
			for _, kk := range sortedKeys(val) {
				fmt.Fprintf(w, "  %s\t%s\n", kk, cell(val[kk]))
			}
		case []any:
			fmt.Fprintf(w, "%s\t%s\n", k, joinAny(val))
		default:
			fmt.Fprintf(w, "%s\t%s\n", k, cell(v))
		}
	}
	w.Flush()
}

// singleCollection detects responses of the shape {"books": [...]} where
// every item is an object.
func singleCollection(data map[string]any) ([]map[string]any, string, bool) {
	if len(data) != 1 {
		return nil, "", false
	}
	for name, v := range data {
		items, ok := v.([]any)
		if !ok {
			return nil, "", false
		}
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, "", false
			}
			rows = append(rows, m)
		}
		return rows, name, true
	}
	return nil, "", false
}

// printRows renders a collection as a column-per-key table. Columns come
// from the first row; books and log records share keys across rows.
func printRows(name string, rows []map[string]any) {
	if len(rows) == 0 {
		fmt.Printf("no %s\n", name)
		return
	}
	cols := sortedKeys(rows[0])
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(cols, "\t")))
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = cell(row[c])
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	w.Flush()
}

// cell flattens a value into a single short table cell. Chapter HTML and
// long prompts would otherwise wreck the layout.
func cell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		s = joinAny(val)
	case map[string]any:
		s = fmt.Sprintf("{%d fields}", len(val))
	default:
		s = fmt.Sprintf("%v", val)
	}
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > 60 {
		s = string(runes[:57]) + "..."
	}
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinAny(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, ", ")
}

func printError(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
}

func printSuccess(msg string) {
	fmt.Println(msg)
}
