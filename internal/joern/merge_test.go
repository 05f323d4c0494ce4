package joern

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for MergeFragments:
// - k fragments yield one digraph containing k subgraphs with balanced braces
// - Node and edge statements are carried over untouched
// - A fragment without a wrapper is rejected
// - No fragments is ErrNoFragments
// - LoadFragments reads files in name order and tolerates a missing directory

func pdgFragment(name string, stmts ...string) []byte {
	return []byte("digraph \"" + name + "\" {  \n" + strings.Join(stmts, "\n") + "\n}\n")
}

func TestMergeFragments_WellFormed(t *testing.T) {
	t.Parallel()

	fragments := []Fragment{
		{Stem: "0-pdg", Data: pdgFragment("main", `"1" [label = <(METHOD,main)<SUB>3</SUB>> ]`, `"1" -> "2"`)},
		{Stem: "1-pdg", Data: pdgFragment("helper", `"3" [label = "(CALL,foo(x))"]`)},
		{Stem: "2-pdg", Data: pdgFragment("other", `"4" -> "5"  [ label = "DDG: x"]`)},
	}

	merged, err := MergeFragments("gadget", fragments)
	require.NoError(t, err)
	text := string(merged)

	assert.Equal(t, 1, strings.Count(text, "digraph"))
	assert.Equal(t, 3, strings.Count(text, "subgraph"))
	assert.Equal(t, strings.Count(text, "{"), strings.Count(text, "}"))
	assert.True(t, strings.HasPrefix(text, `digraph "gadget" {`))
	assert.Contains(t, text, `subgraph "1-pdg" {`)
	assert.Contains(t, text, `"1" [label = <(METHOD,main)<SUB>3</SUB>> ]`)
	assert.Contains(t, text, `"4" -> "5"  [ label = "DDG: x"]`)
	assert.NotContains(t, text, `"helper"`)
}

func TestMergeFragments_Malformed(t *testing.T) {
	t.Parallel()

	_, err := MergeFragments("gadget", []Fragment{
		{Stem: "ok", Data: pdgFragment("a", `"1"`)},
		{Stem: "bad", Data: []byte("not a graph")},
	})
	assert.ErrorIs(t, err, ErrMalformedFragment)

	_, err = MergeFragments("gadget", []Fragment{{Stem: "reversed", Data: []byte("} x {")}})
	assert.ErrorIs(t, err, ErrMalformedFragment)
}

func TestMergeFragments_Empty(t *testing.T) {
	t.Parallel()

	_, err := MergeFragments("gadget", nil)
	assert.ErrorIs(t, err, ErrNoFragments)
}

func TestLoadFragments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1-pdg.dot"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0-pdg.dot"), []byte("a"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	fragments, err := LoadFragments(dir)
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.Equal(t, "0-pdg", fragments[0].Stem)
	assert.Equal(t, []byte("a"), fragments[0].Data)
	assert.Equal(t, "1-pdg", fragments[1].Stem)

	missing, err := LoadFragments(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
