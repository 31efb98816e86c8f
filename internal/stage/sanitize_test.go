package stage

import "testing"

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Plano / Base":      "Plano _ Base",
		`a<b>c:d"e\f|g?h*i`: "a_b_c_d_e_f_g_h_i",
		"  espacios  ":      "espacios",
		"Revisión":          "Revisión",
		"":                  "",
		"F-2024-001":        "F-2024-001",
		"con\ttab\n":        "con\ttab",
		"ya_sanitizado.pdf": "ya_sanitizado.pdf",
		"fin con barra /":   "fin con barra _",
		"/":                 "_",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", in, got, want)
		}
		if again := Sanitize(Sanitize(in)); again != Sanitize(in) {
			t.Fatalf("Sanitize not idempotent for %q: %q", in, again)
		}
	}
}

func TestPathComponent_Fallback(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"", "task_9"},
		{"   ", "task_9"},
		{".", "task_9"},
		{"..", "task_9"},
		{"...", "..."},
		{"Base", "Base"},
	}
	for _, c := range cases {
		if got := pathComponent(c.name, "task", 9); got != c.want {
			t.Fatalf("pathComponent(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestSplitExt(t *testing.T) {
	cases := []struct {
		name, base, ext string
	}{
		{"report.pdf", "report", ".pdf"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"README", "README", ""},
		{".env", ".env", ""},
	}
	for _, c := range cases {
		base, ext := splitExt(c.name)
		if base != c.base || ext != c.ext {
			t.Fatalf("splitExt(%q) = %q, %q", c.name, base, ext)
		}
	}
}
