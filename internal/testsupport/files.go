package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes contents to path, creating parent directories as needed,
// and returns the path.
func WriteFile(t testing.TB, path, contents string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteExpressionTable writes a small CSV expression fixture with gene,
// log2fc, and pvalue columns, suitable as ANALYZE input.
func WriteExpressionTable(t testing.TB, path string) string {
	t.Helper()

	const table = "gene,log2fc,pvalue\n" +
		"TP53,2.31,0.0004\n" +
		"BRCA1,-1.72,0.0121\n" +
		"EGFR,0.14,0.6410\n"
	return WriteFile(t, path, table)
}
