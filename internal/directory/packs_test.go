package directory

import (
	"errors"
	"testing"
	"time"
)

func TestParsePackFile(t *testing.T) {
	got := ParsePackFile([]byte("\ufeffЛуна\r\n\r\n  Марс  \nлуна\nОрбита\n"))
	want := []string{"Луна", "Марс", "Орбита"}
	if len(got) != len(want) {
		t.Fatalf("unexpected locations: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected location %d: got=%q want=%q", i, got[i], want[i])
		}
	}
}

func TestPackNameFromFile(t *testing.T) {
	name, err := PackNameFromFile("Space_2.TXT")
	if err != nil || name != "space_2" {
		t.Fatalf("unexpected pack name: got=%q err=%v", name, err)
	}
	if _, err := PackNameFromFile("../etc.txt"); !errors.Is(err, ErrBadPackName) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrBadPackName)
	}
}

func TestSavePack(t *testing.T) {
	d := setupDirectory(t, time.Unix(1700000000, 0))

	if err := d.SavePack("space", nil, 1); !errors.Is(err, ErrEmptyPack) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrEmptyPack)
	}
	if err := d.SavePack("space", []string{"Луна", "Марс"}, 1); err != nil {
		t.Fatalf("SavePack failed: %v", err)
	}
	locs, err := d.PackLocations("space")
	if err != nil {
		t.Fatalf("PackLocations failed: %v", err)
	}
	if len(locs) != 2 || locs[0] != "Луна" {
		t.Fatalf("unexpected locations: %v", locs)
	}
}
