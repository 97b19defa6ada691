package report

import (
	"fmt"
	"path/filepath"
)

// ExportTarget selects the sinks of a report. It is a value: operations
// receive it explicitly and changing the target account yields a new one.
type ExportTarget struct {
	ToConsole       bool
	ToText          bool
	ToJSON          bool
	OutputDirectory string
	// BaseFilename prefixes every exported file, normally the target username
	BaseFilename string
}

// NewExportTarget builds the export settings for target under baseDir
func NewExportTarget(baseDir, target string, toText, toJSON bool) ExportTarget {
	return ExportTarget{
		ToConsole:       true,
		ToText:          toText,
		ToJSON:          toJSON,
		OutputDirectory: filepath.Join(baseDir, target),
		BaseFilename:    target,
	}
}

// ForTarget returns a copy pointing at another target account
func (t ExportTarget) ForTarget(baseDir, target string) ExportTarget {
	return NewExportTarget(baseDir, target, t.ToText, t.ToJSON)
}

// WithText returns a copy with text export toggled
func (t ExportTarget) WithText(on bool) ExportTarget {
	t.ToText = on
	return t
}

// WithJSON returns a copy with JSON export toggled
func (t ExportTarget) WithJSON(on bool) ExportTarget {
	t.ToJSON = on
	return t
}

// FileName returns "<target>_<operation>.<ext>"
func (t ExportTarget) FileName(operation, ext string) string {
	return fmt.Sprintf("%s_%s.%s", t.BaseFilename, operation, ext)
}

// Path returns the full path of an export file
func (t ExportTarget) Path(operation, ext string) string {
	return filepath.Join(t.OutputDirectory, t.FileName(operation, ext))
}
