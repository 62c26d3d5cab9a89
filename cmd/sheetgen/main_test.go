package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/sheetgen/internal/genealogy"
	"github.com/dgallion1/sheetgen/internal/ocr"
)

const sheet = `Fourth Generation

119. Jane Doe was born 1900.

Jane married John Smith in 1920.

120. Anna Berg was born 1850.
`

// run executes the root command with fresh flag values and a clean
// environment, returning stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{
		"SHEETGEN_CONFIG", "LOG_LEVEL", "OCR_PROVIDER", "MAX_UPLOAD_BYTES",
	} {
		t.Setenv(key, "")
	}
	if os.Getenv("STATE_FILE") == "" {
		t.Setenv("STATE_FILE", filepath.Join(t.TempDir(), "state.json"))
	}

	cfgFile, outputFormat = "", "json"
	renderFormat, renderOut = "html", ""
	ocrTextOnly = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_JSON(t *testing.T) {
	path := writeFile(t, "sheet.txt", sheet)

	out, _, err := run(t, "", "parse", path)
	require.NoError(t, err)

	var doc genealogy.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Fourth Generation", doc.GenerationTitle)
	require.Len(t, doc.Persons, 2)
	assert.Equal(t, "Jane Doe", doc.Persons[0].Name)
	assert.Equal(t, []string{"Jane married John Smith in 1920."}, doc.Persons[0].SubParagraphs)
}

func TestParse_YAMLFromStdin(t *testing.T) {
	out, _, err := run(t, sheet, "parse", "-o", "yaml", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "generation_title: Fourth Generation")
	assert.Contains(t, out, "number: \"119\"")
}

func TestParse_EmptyWarns(t *testing.T) {
	path := writeFile(t, "notes.md", "Just some notes without entries.")

	out, stderr, err := run(t, "", "parse", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "no data extracted")
	assert.Contains(t, out, `"persons": []`)
}

func TestParse_Errors(t *testing.T) {
	_, _, err := run(t, "", "parse", writeFile(t, "sheet.rtf", sheet))
	assert.ErrorContains(t, err, "unsupported file extension")

	_, _, err = run(t, "", "parse", "-o", "xml", writeFile(t, "sheet.txt", sheet))
	assert.ErrorContains(t, err, "unknown output format")

	_, _, err = run(t, "", "parse")
	assert.Error(t, err)
}

func TestRender_FromParsedJSON(t *testing.T) {
	parsed, _, err := run(t, "", "parse", writeFile(t, "sheet.txt", sheet))
	require.NoError(t, err)

	// Tampered markup must not survive: persons are rebuilt from raw text.
	parsed = strings.Replace(parsed, `"main_paragraph": "`, `"main_paragraph": "<script>x</script>`, 1)
	in := writeFile(t, "entries.json", parsed)
	dest := filepath.Join(t.TempDir(), "sheet.html")

	_, stderr, err := run(t, "", "render", in, "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote 2 persons")

	html, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>Fourth Generation</title>")
	assert.Contains(t, string(html), `id="person-119"`)
	assert.NotContains(t, string(html), "<script>")
}

func TestRender_PDFToStdout(t *testing.T) {
	out, _, err := run(t, "", "render", writeFile(t, "sheet.txt", sheet), "--format", "pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "%PDF-"))

	_, _, err = run(t, "", "render", writeFile(t, "sheet.txt", sheet), "--format", "docx")
	assert.Error(t, err)
}

func TestState_ImportExport(t *testing.T) {
	t.Setenv("STATE_FILE", filepath.Join(t.TempDir(), "nested", "state.json"))

	_, _, err := run(t, "", "state", "export", "-")
	assert.Error(t, err, "export before anything was stored")

	_, stderr, err := run(t, `{"sheets":[1,2]}`, "state", "import", "-")
	require.NoError(t, err)
	assert.Contains(t, stderr, "imported state")

	dest := filepath.Join(t.TempDir(), "backup.json")
	_, _, err = run(t, "", "state", "export", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sheets":[1,2]}`, string(data))

	_, _, err = run(t, "not json", "state", "import", "-")
	assert.Error(t, err)
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	report := progressPrinter(&buf)

	report(ocr.Progress{Phase: ocr.PhaseRecognizing, Fraction: 0})
	report(ocr.Progress{Phase: ocr.PhaseRecognizing, Fraction: 0.01})
	report(ocr.Progress{Phase: ocr.PhaseRecognizing, Fraction: 0.5})
	report(ocr.Progress{Phase: ocr.PhaseRecognizing, Fraction: 1})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"recognizing text:   0%",
		"recognizing text:  50%",
		"recognizing text: 100%",
	}, lines)
}
