package upload

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo.png"},
		{"My Photo.png", "My_Photo.png"},
		{"  lots   of\tspace  .pdf", "lots_of_space_.pdf"},
		{"Café Crème.jpg", "Cafe_Creme.jpg"},
		{"Hà Nội - Hạ Long.pdf", "Ha_Noi_-_Ha_Long.pdf"},
		{"Straße.png", "Strasse.png"},
		{"a__b___c.png", "a_b_c.png"},
		{"weird#$%&name!.png", "weirdname.png"},
		{"C:\\fakepath\\scan.pdf", "scan.pdf"},
		{"../../etc/passwd", "passwd"},
		{"東京.png", ".png"},
		{"", "file"},
		{"   ", "file"},
		{"日本", "file"},
		{"___", "file"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_IdempotentAndSafe(t *testing.T) {
	inputs := []string{
		"Résumé final (v2).pdf",
		"  leading and trailing  ",
		"tab\tnew\nline",
		"emoji 🎉 party.png",
		"ÆØÅ æøå.jpg",
		"__init__.py",
		"-dash-.png",
		"a\u0301\u0302b.png",
		"x/y/z",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		if !safeName.MatchString(once) {
			t.Errorf("Sanitize(%q) = %q contains unsafe characters", in, once)
		}
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNamer_UniqueWithinSameMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	n := NewNamer(func() time.Time { return fixed })

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := n.Next(KindImage, "", "same.png")
		if seen[name] {
			t.Fatalf("duplicate name %q at iteration %d", name, i)
		}
		seen[name] = true
	}

	if got := n.Next(KindImage, "", "x.png"); got != "1700000000100_x.png" {
		t.Errorf("expected monotonic millis, got %q", got)
	}
}

func TestNamer_DocumentOwnerFolder(t *testing.T) {
	fixed := time.UnixMilli(42)
	n := NewNamer(func() time.Time { return fixed })

	got := n.Next(KindDocument, "user-7", "Visa Letter.pdf")
	if got != "user-7/42_Visa_Letter.pdf" {
		t.Errorf("unexpected document path %q", got)
	}

	got = n.Next(KindDocument, "", "a.pdf")
	if !strings.HasPrefix(got, unassignedOwner+"/") {
		t.Errorf("expected ownerless document under %q, got %q", unassignedOwner, got)
	}

	got = n.Next(KindImage, "user-7", "a.png")
	if strings.Contains(got, "/") {
		t.Errorf("images should not get an owner folder, got %q", got)
	}
}

func TestNamer_OwnerFolderStaysInside(t *testing.T) {
	n := NewNamer(func() time.Time { return time.UnixMilli(42) })

	folderOf := func(owner string) string {
		t.Helper()
		path := n.Next(KindDocument, owner, "a.pdf")
		folder, _, ok := strings.Cut(path, "/")
		if !ok || strings.Count(path, "/") != 1 {
			t.Fatalf("owner %q: expected exactly one folder, got %q", owner, path)
		}
		if strings.Trim(folder, ".") == "" {
			t.Errorf("owner %q: folder %q is a relative path segment", owner, folder)
		}
		return folder
	}

	for _, owner := range []string{"..", ".", "../../etc", `..\..\etc`, "a/b/c"} {
		folderOf(owner)
	}

	if folderOf("..") == unassignedOwner || folderOf(".") == unassignedOwner {
		t.Errorf("dot-only owners must not share the ownerless folder")
	}
	if folderOf("..") == folderOf(".") {
		t.Errorf("distinct dot-only owners share a folder")
	}

	distinct := [][2]string{
		{"../../etc", "etc"},
		{"team/etc", "etc"},
		{"a/b", "a_b"},
		{"a/b", "c/b"},
	}
	for _, pair := range distinct {
		if a, b := folderOf(pair[0]), folderOf(pair[1]); a == b {
			t.Errorf("owners %q and %q share folder %q", pair[0], pair[1], a)
		}
	}

	if got := folderOf("6f1c2a9e-3b7d-4c11-9a0e-1d2e3f4a5b6c"); got != "6f1c2a9e-3b7d-4c11-9a0e-1d2e3f4a5b6c" {
		t.Errorf("safe owner IDs should be kept as is, got %q", got)
	}
}
