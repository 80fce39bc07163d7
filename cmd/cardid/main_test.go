package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/cardid/cardid-server/internal/errors"
	"github.com/cardid/cardid-server/internal/service"
)

// runCLI executes one command against a fresh root, as the binary would.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// catalogArgs points the CLI at an isolated offline catalog.
func catalogArgs(t *testing.T, dataDir string, args ...string) []string {
	t.Helper()
	base := []string{
		"--env-file", filepath.Join(dataDir, "missing.env"),
		"--data-dir", dataDir,
		"--log-level", "error",
		"--offline",
	}
	return append(args, base...)
}

// importFixture loads testdata/cards.json into a new catalog.
func importFixture(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	out, err := runCLI(t, catalogArgs(t, dataDir, "import", filepath.Join("testdata", "cards.json"))...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 3 cards from 1 file(s)")
	assert.Contains(t, out, "Indexed 2 names")
	return dataDir
}

func TestClassifyCommand(t *testing.T) {
	out, err := runCLI(t, "classify", "4/102", "SWSH039")
	require.NoError(t, err)

	assert.Contains(t, out, "fraction")
	assert.Contains(t, out, "promo_a")
	assert.Contains(t, out, "SWSH39")
	assert.Contains(t, out, "swshp")
	assert.Contains(t, out, "102")
}

func TestClassifyCommand_JSON(t *testing.T) {
	out, err := runCLI(t, "classify", "--json", "--radius", "1", "4/102")
	require.NoError(t, err)

	var got []service.NumberClassification
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "fraction", got[0].Format)
	assert.Equal(t, []string{"4"}, got[0].Variants)
	assert.Equal(t, 102, got[0].Total)
	assert.Equal(t, []string{"3", "5"}, got[0].Neighbours)
}

func TestClassifyCommand_RequiresArgument(t *testing.T) {
	_, err := runCLI(t, "classify")
	assert.Error(t, err)
}

func TestExpandCommand(t *testing.T) {
	out, err := runCLI(t, "expand", "SM226", "-r", "2")
	require.NoError(t, err)

	for _, n := range []string{"SM224", "SM225", "SM226", "SM227", "SM228"} {
		assert.Contains(t, out, n)
	}
	assert.NotContains(t, out, "SM229")
	assert.Less(t, strings.Index(out, "SM224"), strings.Index(out, "SM228"))
}

func TestRadiusBounds(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"expand negative", []string{"expand", "007", "--radius", "-1"}, "radius must not be negative"},
		{"expand too large", []string{"expand", "007", "--radius", "1000000"}, "radius must not exceed 10"},
		{"classify negative", []string{"classify", "4/102", "--radius", "-1"}, "radius must not be negative"},
		{"classify too large", []string{"classify", "4/102", "--radius", "11"}, "radius must not exceed 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			assert.EqualError(t, err, tt.want)
		})
	}

	_, err := runCLI(t, "expand", "007", "--radius", "10")
	assert.NoError(t, err)
}

func TestResolveCommand(t *testing.T) {
	dataDir := importFixture(t)

	out, err := runCLI(t, catalogArgs(t, dataDir,
		"resolve", "--name", "Charizard", "--number", "4/102", "--json")...)
	require.NoError(t, err, out)

	var ident service.Identification
	require.NoError(t, json.Unmarshal([]byte(out), &ident))
	assert.True(t, strings.HasPrefix(ident.ID, "res-"))
	assert.True(t, ident.Success)
	require.NotNil(t, ident.Card)
	assert.Equal(t, "base1-4", ident.Card.ID)
	require.NotNil(t, ident.Patch)
	assert.Equal(t, "base1-4", ident.Patch.CatalogID)
}

func TestResolveCommand_Table(t *testing.T) {
	dataDir := importFixture(t)

	out, err := runCLI(t, catalogArgs(t, dataDir,
		"resolve", "--name", "Charizard", "--number", "4/130")...)
	require.NoError(t, err, out)

	assert.Contains(t, out, "base4-4")
	assert.Contains(t, out, "Base Set 2")
	assert.Contains(t, out, "4/130")
	assert.Contains(t, out, "yes")
}

func TestResolveCommand_NoMatch(t *testing.T) {
	dataDir := importFixture(t)

	out, err := runCLI(t, catalogArgs(t, dataDir,
		"resolve", "--name", "Mewtwo", "--number", "150/165")...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errNoMatch))
	assert.Contains(t, out, "Reason")
}

func TestResolveCommand_EmptyQuery(t *testing.T) {
	dataDir := t.TempDir()

	_, err := runCLI(t, catalogArgs(t, dataDir, "resolve")...)
	require.Error(t, err)
	assert.False(t, errors.Is(err, errNoMatch))
	assert.True(t, errors.Is(err, domainerrors.ErrValidation))
}

func TestSetsCommand(t *testing.T) {
	dataDir := importFixture(t)

	out, err := runCLI(t, catalogArgs(t, dataDir, "sets")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "base1")
	assert.Contains(t, out, "Base Set 2")
	assert.Contains(t, out, "130")

	out, err = runCLI(t, catalogArgs(t, dataDir, "sets", "base4", "--json")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, `"printed_total": 130`)

	_, err = runCLI(t, catalogArgs(t, dataDir, "sets", "neo1")...)
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))
}

func TestReindexCommand(t *testing.T) {
	dataDir := importFixture(t)

	out, err := runCLI(t, catalogArgs(t, dataDir, "reindex")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Indexed 2 names")

	out, err = runCLI(t, catalogArgs(t, t.TempDir(), "reindex")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Indexed 0 names")
}

func TestImportCommand_BadFile(t *testing.T) {
	dataDir := t.TempDir()

	_, err := runCLI(t, catalogArgs(t, dataDir, "import", filepath.Join(dataDir, "absent.json"))...)
	assert.Error(t, err)
}

func TestConfigArgs(t *testing.T) {
	ctx := newCommandContext()
	assert.Equal(t, []string{"-watch", "false"}, ctx.configArgs())

	ctx.dataDir = "/data"
	ctx.logLevel = "debug"
	ctx.offline = true
	assert.Equal(t, []string{
		"-data-dir", "/data",
		"-log-level", "debug",
		"-remote", "false",
		"-watch", "false",
	}, ctx.configArgs())
}

func TestRenderTable(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil))

	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "only")
	assert.Contains(t, out, "╭")
}
