package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/strategiq/swot/internal/models"
	"github.com/strategiq/swot/internal/pkg/pdfcache"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "primary_entity": "Acme",
  "comparison_entities": ["Globex"],
  "strengths": ["Brand"],
  "weaknesses": ["Cost"],
  "opportunities": ["Export"],
  "threats": ["Tariffs"],
  "analysis": "Acme is ahead."
}`

func TestFingerprintCmd(t *testing.T) {
	cmd := newFingerprintCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(sampleJSON))
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	want := pdfcache.Fingerprint(models.SwotAnalysis{
		PrimaryEntity:      "Acme",
		ComparisonEntities: []string{"Globex"},
		Strengths:          []string{"Brand"},
		Weaknesses:         []string{"Cost"},
		Opportunities:      []string{"Export"},
		Threats:            []string{"Tariffs"},
		Analysis:           "Acme is ahead.",
	})
	require.Equal(t, want+"\n", out.String())
}

func TestRenderCmd(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "analysis.json")
	outPath := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(in, []byte(sampleJSON), 0o644))

	cmd := newRenderCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--in", in, "--out", outPath})
	require.NoError(t, cmd.Execute())
	require.Equal(t, outPath+"\n", out.String())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestReadAnalysis_Rejects(t *testing.T) {
	_, err := readAnalysis("-", strings.NewReader("not json"))
	require.ErrorContains(t, err, "decode analysis")

	_, err = readAnalysis("-", strings.NewReader(`{"strengths":["x"]}`))
	require.ErrorContains(t, err, "primary_entity is empty")
}
