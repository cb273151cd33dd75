package defectscore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamosa/dynamosa/internal/target"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"pkg.Foo.bar(int;String...)void:":     "pkg.Foo.bar(int;String[]):",
		"pkg.Foo.baz(List<Integer>;)int:":     "pkg.Foo.baz(List;)int:",
		"pkg.Foo.plain(int;)boolean:":         "pkg.Foo.plain(int;)boolean:",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestLoad_AggregatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "Foo.csv", "fqMethodName,defectScore\npkg.Foo.bar(int;)void:,0.8\n")
	writeCSV(t, dir, "Bar.csv", "fqMethodName,defectScore\npkg.Bar.baz()int:,0\n")
	writeCSV(t, dir, "ignored.txt", "not a csv")

	scores, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.8, scores["pkg.Foo.bar(int;):"])
	assert.Equal(t, 0.0, scores["pkg.Bar.baz()int:"])
	assert.Len(t, scores, 2)
}

func TestLoad_MalformedRowsAggregateIntoOneError(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bad.csv", "fqMethodName,defectScore\npkg.Foo.bar(),notanumber\n")
	writeCSV(t, dir, "worse.csv", "wrongHeader,here\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration error")
}

func TestLoad_MissingDirIsConfigurationError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

func TestApplyBuggyLabels(t *testing.T) {
	scores := map[string]float64{
		"pkg.Foo.bar(int;):":  0.9,
		"pkg.Foo.baz():":      0,
		"pkg.Ghost.missing():": 0.5,
	}
	goals := []*target.Target{
		{ID: 1, FQMethodName: "pkg.Foo.bar(int;):"},
		{ID: 2, FQMethodName: "pkg.Foo.baz():"},
		{ID: 3}, // no FQMethodName, untouched
	}

	missing := ApplyBuggyLabels(scores, goals)

	assert.True(t, goals[0].Buggy)
	assert.False(t, goals[1].Buggy)
	assert.False(t, goals[2].Buggy)
	assert.Equal(t, []string{"pkg.Ghost.missing():"}, missing)
}
