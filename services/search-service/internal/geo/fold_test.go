package geo

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Bogotá":         "bogota",
		" MEDELLÍN ":     "medellin",
		"Cúcuta":         "cucuta",
		"San Andrés":     "san andres",
		"Ñuñoa":          "nunoa",
		"already simple": "already simple",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVariants(t *testing.T) {
	got := Variants("Bogotá")
	if len(got) != 2 || got[0] != "bogotá" || got[1] != "bogota" {
		t.Fatalf("unexpected variants %v", got)
	}
	if got := Variants("Cali"); len(got) != 1 || got[0] != "cali" {
		t.Fatalf("unexpected variants %v", got)
	}
	if Variants("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}

func TestContains(t *testing.T) {
	if !Contains("Bogota D.C.", Variants("Bogotá")) {
		t.Fatal("expected unaccented stored value to match")
	}
	if !Contains("Bogotá", Variants("bogota")) {
		t.Fatal("expected accented stored value to match")
	}
	if Contains("Medellín", Variants("Bogotá")) {
		t.Fatal("unexpected match")
	}
}
