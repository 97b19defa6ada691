// Package report renders operation results to the console and exports them
// as text and JSON files.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"osintgram/pkg/aggregator"
	"osintgram/pkg/logger"
	"osintgram/pkg/storage"
)

// NoResults is printed instead of an empty table
const NoResults = "Sorry! No results found :-("

// PartialNotice precedes results cut short by throttling
const PartialNotice = "Throttled by Instagram, showing partial results"

// Column is one table column
type Column struct {
	Header string
	Value  func(aggregator.Entry) string
}

// Field builds a column showing a record field
func Field(header, path string) Column {
	return Column{Header: header, Value: func(e aggregator.Entry) string {
		return e.Record.StringOr(path, "")
	}}
}

// Counter builds a column showing the entry counter
func Counter(header string) Column {
	return Column{Header: header, Value: func(e aggregator.Entry) string {
		return fmt.Sprint(e.Count)
	}}
}

// Table is a tabular operation result
type Table struct {
	// Operation names the export files
	Operation string
	Columns   []Column
	Entries   []aggregator.Entry
	// JSONKey is the single top-level key of the JSON export
	JSONKey string
	// JSONValue maps an entry to its JSON form; the record itself by default
	JSONValue func(aggregator.Entry) any
	// Document replaces the per-entry list under JSONKey when set
	Document  any
	Truncated bool
}

// Summary is a scalar operation result such as a total
type Summary struct {
	Operation string
	Lines     []string
	JSON      map[string]any
	// Empty marks a summary computed over nothing
	Empty     bool
	Truncated bool
}

// Reporter writes results to an output stream and export files
type Reporter struct {
	out    io.Writer
	log    logger.Logger
	styled bool
}

// New creates a reporter printing to out
func New(out io.Writer, log logger.Logger) *Reporter {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Reporter{out: out, log: log}
}

// SetStyled enables terminal styling of console tables
func (r *Reporter) SetStyled(on bool) {
	r.styled = on
}

// Table prints t and exports it according to target. Empty tables print the
// no-results notice and never create files. The text and JSON exports are
// attempted independently and their failures joined.
func (r *Reporter) Table(t Table, target ExportTarget) error {
	if t.Truncated {
		fmt.Fprintln(r.out, PartialNotice)
	}
	if len(t.Entries) == 0 {
		fmt.Fprintln(r.out, NoResults)
		return nil
	}

	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	rows := make([][]string, len(t.Entries))
	for i, e := range t.Entries {
		row := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = sanitizeCell(c.Value(e))
		}
		rows[i] = row
	}

	fmt.Fprintln(r.out, renderTable(headers, rows, r.styled))

	var text []byte
	if target.ToText {
		text = []byte(renderTable(headers, rows, false) + "\n")
	}

	var doc map[string]any
	if target.ToJSON && t.Document != nil {
		doc = map[string]any{t.JSONKey: t.Document}
	} else if target.ToJSON {
		values := make([]any, len(t.Entries))
		for i, e := range t.Entries {
			if t.JSONValue != nil {
				values[i] = t.JSONValue(e)
			} else {
				values[i] = e.Record
			}
		}
		doc = map[string]any{t.JSONKey: values}
	}

	return r.export(t.Operation, target, text, doc)
}

// Summary prints s and exports it according to target
func (r *Reporter) Summary(s Summary, target ExportTarget) error {
	if s.Truncated {
		fmt.Fprintln(r.out, PartialNotice)
	}
	if s.Empty {
		fmt.Fprintln(r.out, NoResults)
		return nil
	}

	body := strings.Join(s.Lines, "\n") + "\n"
	fmt.Fprint(r.out, body)

	var text []byte
	if target.ToText {
		text = []byte(body)
	}
	var doc map[string]any
	if target.ToJSON {
		doc = s.JSON
	}
	return r.export(s.Operation, target, text, doc)
}

func (r *Reporter) export(operation string, target ExportTarget, text []byte, doc map[string]any) error {
	if text == nil && doc == nil {
		return nil
	}

	store, err := storage.NewManager(target.OutputDirectory)
	if err != nil {
		logger.LogExport(r.log, "directory", target.OutputDirectory, err)
		return err
	}

	var errs []error
	if text != nil {
		name := target.FileName(operation, "txt")
		_, err := store.WriteFile(name, text)
		logger.LogExport(r.log, "text", store.Path(name), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("text export: %w", err))
		}
	}

	if doc != nil {
		name := target.FileName(operation, "json")
		data, err := json.MarshalIndent(doc, "", "  ")
		if err == nil {
			_, err = store.WriteFile(name, append(data, '\n'))
		}
		logger.LogExport(r.log, "json", store.Path(name), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("json export: %w", err))
		}
	}

	return errors.Join(errs...)
}

// sanitizeCell keeps multi-line captions and comments on one table row
func sanitizeCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
