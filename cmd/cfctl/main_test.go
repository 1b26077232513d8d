package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const answersYAML = `userInfo:
  nama: Budi Santoso
  usia: 21
  jenisKelamin: Laki-laki
  programStudi: Sistem Informasi
  angkatan: "2021"
  domisili: Semarang
answers:
  G01: 0.8
  G02: 0.6
  G03: 1.0
  G05: 0.4
  G07: 0.2
`

// execute runs cfctl with args against a fresh flag state and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	diagnoseFlags.save, diagnoseFlags.asJSON = false, false
	exportFlags.id, exportFlags.format, exportFlags.outDir = "", "excel", "."
	statsJSON = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) (dbFlags []string, answers string) {
	t.Helper()
	dir := t.TempDir()
	answers = filepath.Join(dir, "answers.yaml")
	require.NoError(t, os.WriteFile(answers, []byte(answersYAML), 0o600))
	return []string{"--store", "sqlite", "--sqlite-path", filepath.Join(dir, "cf.db"), "--env-file", ""}, answers
}

func TestHypothesesAndQuestions(t *testing.T) {
	db, _ := setup(t)

	out, err := execute(t, append([]string{"hypotheses"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "P1")
	assert.Contains(t, out, "Kecanduan Berat")

	out, err = execute(t, append([]string{"questions", "p2"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "(7 questions)")
	assert.Contains(t, out, "[G04]")

	_, err = execute(t, append([]string{"questions", "P9"}, db...)...)
	assert.Error(t, err)
}

func TestDiagnoseSaveAndResults(t *testing.T) {
	db, answers := setup(t)

	out, err := execute(t, append([]string{"diagnose", "--hypothesis", "P1", "-i", answers}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Level:")
	assert.NotContains(t, out, "Result:")

	out, err = execute(t, append([]string{"diagnose", "--hypothesis", "1", "-i", answers, "--save"}, db...)...)
	require.NoError(t, err)
	id := regexp.MustCompile(`Result:\s+(\S+)`).FindStringSubmatch(out)
	require.Len(t, id, 2, out)

	out, err = execute(t, append([]string{"results", "list"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, id[1])
	assert.Contains(t, out, "Budi Santoso")

	out, err = execute(t, append([]string{"results", "get", id[1]}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "G07")

	out, err = execute(t, append([]string{"stats"}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Respondents:   1")

	outDir := t.TempDir()
	out, err = execute(t, append([]string{"export", "--format", "pdf", "-o", outDir, "--id", id[1]}, db...)...)
	require.NoError(t, err)
	assert.Contains(t, out, ".pdf")
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "hasil-diagnosa-"))

	_, err = execute(t, append([]string{"results", "delete", id[1]}, db...)...)
	require.NoError(t, err)
	_, err = execute(t, append([]string{"results", "get", id[1]}, db...)...)
	assert.Error(t, err)
}

func TestDiagnoseRejectsBadInput(t *testing.T) {
	db, answers := setup(t)

	// P2 does not ask G01.
	_, err := execute(t, append([]string{"diagnose", "--hypothesis", "P2", "-i", answers}, db...)...)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(strings.Replace(answersYAML, "G07: 0.2", "G99: 0.2", 1)), 0o600))
	_, err = execute(t, append([]string{"diagnose", "--hypothesis", "P1", "-i", bad}, db...)...)
	assert.ErrorContains(t, err, "G99")

	_, err = execute(t, append([]string{"export", "--format", "docx"}, db...)...)
	assert.Error(t, err)
}
