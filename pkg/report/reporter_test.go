package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"osintgram/pkg/aggregator"
	"osintgram/pkg/logger"
	"osintgram/pkg/record"
)

func followerTable(entries ...aggregator.Entry) Table {
	return Table{
		Operation: "followers",
		Columns:   []Column{Field("ID", "pk"), Field("Username", "username"), Field("Full Name", "full_name")},
		Entries:   entries,
		JSONKey:   "followers",
	}
}

func entry(pk, username, fullName string) aggregator.Entry {
	return aggregator.Entry{
		Key:    pk,
		Count:  1,
		Record: record.Record{"pk": pk, "username": username, "full_name": fullName},
	}
}

func TestTableConsoleAndExports(t *testing.T) {
	var out bytes.Buffer
	dir := filepath.Join(t.TempDir(), "alice")
	target := ExportTarget{ToConsole: true, ToText: true, ToJSON: true, OutputDirectory: dir, BaseFilename: "alice"}

	r := New(&out, logger.NewNopLogger())
	err := r.Table(followerTable(entry("1", "bob", "Bob B"), entry("2", "carol", "Carol C")), target)
	require.NoError(t, err)

	console := out.String()
	assert.Contains(t, console, "Username")
	assert.Contains(t, console, "carol")

	text, err := os.ReadFile(filepath.Join(dir, "alice_followers.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "Bob B")
	assert.NotContains(t, string(text), "\x1b[")

	raw, err := os.ReadFile(filepath.Join(dir, "alice_followers.json"))
	require.NoError(t, err)
	var doc map[string][]map[string]string
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc, 1)
	require.Len(t, doc["followers"], 2)
	assert.Equal(t, "carol", doc["followers"][1]["username"])
}

func TestTableExportIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := NewExportTarget(dir, "alice", true, true)
	r := New(&bytes.Buffer{}, nil)
	table := followerTable(entry("1", "bob", "Bob B"))

	require.NoError(t, r.Table(table, target))
	first, err := os.ReadFile(target.Path("followers", "json"))
	require.NoError(t, err)
	firstText, err := os.ReadFile(target.Path("followers", "txt"))
	require.NoError(t, err)

	require.NoError(t, r.Table(table, target))
	second, err := os.ReadFile(target.Path("followers", "json"))
	require.NoError(t, err)
	secondText, err := os.ReadFile(target.Path("followers", "txt"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstText, secondText)
}

func TestEmptyTableWritesNoFiles(t *testing.T) {
	var out bytes.Buffer
	dir := filepath.Join(t.TempDir(), "alice")
	target := ExportTarget{ToConsole: true, ToText: true, ToJSON: true, OutputDirectory: dir, BaseFilename: "alice"}

	require.NoError(t, New(&out, nil).Table(followerTable(), target))

	assert.Equal(t, NoResults+"\n", out.String())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "output directory should not be created")
}

func TestTextFailureDoesNotBlockJSON(t *testing.T) {
	dir := t.TempDir()
	// a directory squatting on the text file name makes the rename fail
	blocker := filepath.Join(dir, "alice_followers.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "occupied"), 0o755))

	log := logger.NewTestLogger()
	target := ExportTarget{ToText: true, ToJSON: true, OutputDirectory: dir, BaseFilename: "alice"}

	err := New(&bytes.Buffer{}, log).Table(followerTable(entry("1", "bob", "Bob B")), target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text export")

	_, statErr := os.Stat(filepath.Join(dir, "alice_followers.json"))
	assert.NoError(t, statErr)
	assert.True(t, log.HasMessage("export failed"))
}

func TestTruncatedTablePrintsNotice(t *testing.T) {
	var out bytes.Buffer
	table := followerTable(entry("1", "bob", "Bob B"))
	table.Truncated = true

	require.NoError(t, New(&out, nil).Table(table, ExportTarget{ToConsole: true}))
	assert.True(t, strings.HasPrefix(out.String(), PartialNotice))
}

func TestCustomJSONValueAndCounter(t *testing.T) {
	dir := t.TempDir()
	target := NewExportTarget(dir, "alice", false, true)
	table := Table{
		Operation: "hashtags",
		Columns:   []Column{Counter("Count"), Field("Hashtag", "tag")},
		Entries: []aggregator.Entry{
			{Key: "#go", Count: 3, Record: record.Record{"tag": "#go"}},
		},
		JSONKey: "hashtags",
		JSONValue: func(e aggregator.Entry) any {
			return map[string]any{"hashtag": e.Key, "count": e.Count}
		},
	}

	var out bytes.Buffer
	require.NoError(t, New(&out, nil).Table(table, target))
	assert.Contains(t, out.String(), "#go")

	raw, err := os.ReadFile(target.Path("hashtags", "json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hashtags":[{"hashtag":"#go","count":3}]}`, string(raw))

	_, err = os.Stat(target.Path("hashtags", "txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestSummary(t *testing.T) {
	dir := t.TempDir()
	target := NewExportTarget(dir, "alice", true, true)

	var out bytes.Buffer
	err := New(&out, nil).Summary(Summary{
		Operation: "likes",
		Lines:     []string{"alice got a total of " + FormatCount(12345) + " likes in 3 posts"},
		JSON:      map[string]any{"like_counter": 12345, "posts": 3},
	}, target)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "12,345")
	raw, err := os.ReadFile(target.Path("likes", "json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"like_counter":12345,"posts":3}`, string(raw))
}

func TestEmptySummary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "alice")
	var out bytes.Buffer
	require.NoError(t, New(&out, nil).Summary(Summary{Operation: "likes", Empty: true}, NewExportTarget(filepath.Dir(dir), "alice", true, true)))
	assert.Equal(t, NoResults+"\n", out.String())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestExportTarget(t *testing.T) {
	target := NewExportTarget("output", "alice", true, false)
	assert.Equal(t, filepath.Join("output", "alice"), target.OutputDirectory)
	assert.Equal(t, "alice_followers.txt", target.FileName("followers", "txt"))

	other := target.ForTarget("output", "bob").WithJSON(true)
	assert.Equal(t, "bob", other.BaseFilename)
	assert.True(t, other.ToText)
	assert.True(t, other.ToJSON)
	assert.False(t, target.ToJSON, "original target is unchanged")
}

func TestSanitizeCell(t *testing.T) {
	assert.Equal(t, "line one line two", sanitizeCell("line one\n  line two"))
}
