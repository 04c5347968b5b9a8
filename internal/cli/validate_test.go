package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runValidateCmd executes the validate command and returns stdout.
func runValidateCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeModels writes a CUE model file into a fresh directory.
func writeModels(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.cue"), []byte(content), 0644))
	return dir
}

func TestValidateValidModels(t *testing.T) {
	output, err := runValidateCmd(t, &RootOptions{Format: "text"}, modelsDir)
	require.NoError(t, err)
	assert.Contains(t, output, "✓ 3 model(s) and 0 query document(s) valid")
}

func TestValidateValidModelsJSON(t *testing.T) {
	output, err := runValidateCmd(t, &RootOptions{Format: "json"}, modelsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Models)
}

func TestValidateQueries(t *testing.T) {
	output, err := runValidateCmd(t, &RootOptions{Format: "text"}, modelsDir,
		filepath.Join(queriesDir, "hot_title.yaml"),
		filepath.Join(queriesDir, "long_title.yaml"))
	require.NoError(t, err)
	assert.Contains(t, output, "3 model(s) and 2 query document(s) valid")
	assert.NotContains(t, output, "warning")
}

func TestValidateQueryWarningsDoNotFail(t *testing.T) {
	output, err := runValidateCmd(t, &RootOptions{Format: "json"}, modelsDir, filepath.Join(queriesDir, "exists_ordered.yaml"))
	require.NoError(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Warnings, 1)
	assert.Contains(t, resp.Data.Warnings[0].Message, "ordering inside EXISTS on Book")
	assert.Equal(t, filepath.Join(queriesDir, "exists_ordered.yaml"), resp.Data.Warnings[0].Source)
}

func TestValidateQueryCompileErrors(t *testing.T) {
	uncorrelated := filepath.Join(queriesDir, "uncorrelated.yaml")
	unknown := filepath.Join(queriesDir, "unknown_field.yaml")

	output, err := runValidateCmd(t, &RootOptions{Format: "json"}, modelsDir, uncorrelated, unknown)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)

	assert.Equal(t, uncorrelated, resp.Data.Errors[0].Source)
	assert.Equal(t, ErrCodeQueryCompile, resp.Data.Errors[0].Code)
	assert.Contains(t, resp.Data.Errors[0].Message, "UNCORRELATED_SUBQUERY")

	assert.Equal(t, unknown, resp.Data.Errors[1].Source)
	assert.Contains(t, resp.Data.Errors[1].Message, "FIELD_RESOLUTION")
}

func TestValidateAnnotationCycleInSubquery(t *testing.T) {
	output, err := runValidateCmd(t, &RootOptions{Format: "text"}, modelsDir, filepath.Join(queriesDir, "annotation_cycle.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, ErrCodeQueryCompile)
	assert.Contains(t, output, `annotation "a" refers to itself`)
}

func TestValidateMalformedQuery(t *testing.T) {
	output, err := runValidateCmd(t, &RootOptions{Format: "text"}, modelsDir, filepath.Join(queriesDir, "malformed.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, ErrCodeQueryLoad)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	opts := &RootOptions{Format: "text"}
	_, err := runValidateCmd(t, opts, filepath.Join(t.TempDir(), "models.cue"))
	require.Error(t, err)
	// not a directory or existing .cue file, and nothing configured
	assert.Contains(t, err.Error(), "no models directory")
}

func TestValidateEmptyDirectory(t *testing.T) {
	output, err := runValidateCmd(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, output, "no CUE files found")
}

func TestValidateInvalidModel(t *testing.T) {
	dir := writeModels(t, `
package models

model: Book: fields: {
	id: {type: "int", primary_key: true}
	title: {type: "float"}
}
`)

	output, err := runValidateCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "E102")
}

func TestValidateMultipleErrors(t *testing.T) {
	dir := writeModels(t, `
package models

model: Book: fields: {
	id: {type: "int", primary_key: true}
	isbn: {type: "string", primary_key: true}
	author: {type: "int", references: "Author"}
}
`)

	output, err := runValidateCmd(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)

	var resp struct {
		Data  ValidationResult `json:"data"`
		Error *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.NotNil(t, resp.Error)

	codes := make([]string, 0, len(resp.Data.Errors))
	for _, e := range resp.Data.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, "E104")
	assert.Contains(t, codes, "E105")
}

func TestValidateSkipsQueriesWhenModelsInvalid(t *testing.T) {
	dir := writeModels(t, `
package models

model: Book: fields: {
	id: {type: "int", primary_key: true}
	author: {type: "int", references: "Author"}
}
`)

	output, err := runValidateCmd(t, &RootOptions{Format: "json"}, dir, filepath.Join(queriesDir, "hot_title.yaml"))
	require.Error(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Len(t, resp.Data.Errors, 1)
	assert.Empty(t, resp.Data.Errors[0].Source)
}

func TestValidateVerboseOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{modelsDir, filepath.Join(queriesDir, "hot_title.yaml")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errBuf.String(), "Found 1 CUE file(s)")
	assert.Contains(t, errBuf.String(), "Validating query:")
}

func TestValidateReportsReferenceCycles(t *testing.T) {
	dir := writeModels(t, `
package models

model: Author: fields: {
	id: {type: "int", primary_key: true}
	favorite_book: {type: "int", references: "Book"}
}
model: Book: fields: {
	id: {type: "int", primary_key: true}
	author: {type: "int", references: "Author"}
}
model: Category: fields: {
	id: {type: "int", primary_key: true}
	parent: {type: "int", references: "Category"}
}
`)

	output, err := runValidateCmd(t, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)
	assert.Contains(t, output, "warning: "+dir+": reference cycle: Author → Book → Author")
	// self references are ordinary trees
	assert.NotContains(t, output, "Category")
}
