package docspec

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinHasAllKinds(t *testing.T) {
	reg, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	for _, kind := range Kinds() {
		spec, err := reg.Get(kind)
		if err != nil {
			t.Fatalf("Get(%s): %v", kind, err)
		}
		if spec.Title == "" || spec.Footer == "" {
			t.Fatalf("%s: title/footer missing", kind)
		}
	}
	if _, err := reg.Get("invoice"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestBuiltinTables(t *testing.T) {
	reg, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	want := map[Kind]string{
		DeliverySheet:   "items",
		SeparationSheet: "items",
		AssemblyReport:  "products",
		RouteReport:     "stops",
	}
	for kind, table := range want {
		spec, _ := reg.Get(kind)
		if _, ok := spec.Table(table); !ok {
			t.Fatalf("%s: table %s missing (have %v)", kind, table, spec.TableNames())
		}
	}
	proof, _ := reg.Get(DeliveryProof)
	if proof.PhotosPerPage != 4 {
		t.Fatalf("delivery-proof photos-per-page = %d", proof.PhotosPerPage)
	}
}

func TestLoadDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	src := `document delivery-sheet {
  title: "Manifesto"
  footer: "${page}/${total}"
}
`
	if err := os.WriteFile(filepath.Join(dir, "custom.dsl"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not a spec"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	spec, _ := reg.Get(DeliverySheet)
	if spec.Title != "Manifesto" {
		t.Fatalf("override not applied: %q", spec.Title)
	}
	other, _ := reg.Get(RouteReport)
	if other.Title != "Relatório de Rota" {
		t.Fatalf("builtin route-report lost: %q", other.Title)
	}
}
