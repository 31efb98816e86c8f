package manifest

import (
	"bytes"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
)

func TestMarshal_RewriteStable(t *testing.T) {
	doc := map[string]any{
		"summary": map[string]any{
			"written":    2,
			"discovered": 3,
		},
		"folio": "F-2024-001",
		"files": []any{
			map[string]any{"path": "b.pdf", "outcome": "written"},
		},
	}
	b1, err := Marshal(doc)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	b2, err := Marshal(doc)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("not rewrite-stable\nfirst:\n%s\nsecond:\n%s", string(b1), string(b2))
	}
	want := "files:\n  - outcome: written\n    path: b.pdf\nfolio: F-2024-001\n" +
		"summary:\n  discovered: 3\n  written: 2\n"
	if string(b1) != want {
		t.Fatalf("unexpected canonical output\nwant:\n%s\ngot:\n%s", want, string(b1))
	}
}

func TestWrite_Memfs(t *testing.T) {
	fs := memfs.New()
	p, err := Write(fs, "Proyecto_X_20240101_000000", map[string]any{"folio": "X"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if p != "Proyecto_X_20240101_000000/"+FileName {
		t.Fatalf("unexpected path %q", p)
	}
	f, err := fs.Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "folio: X\n" {
		t.Fatalf("unexpected content %q", string(b))
	}
}
