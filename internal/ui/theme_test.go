package ui

import "testing"

func TestGetThemeIsCaseInsensitive(t *testing.T) {
	if got := GetTheme("basil").Name; got != "Basil" {
		t.Fatalf("GetTheme(basil) = %q, want Basil", got)
	}
	if got := GetTheme("  PAPRIKA ").Name; got != "Paprika" {
		t.Fatalf("GetTheme(PAPRIKA) = %q, want Paprika", got)
	}
}

func TestGetThemeUnknownFallsBack(t *testing.T) {
	if got := GetTheme("nope").Name; got != "Paprika" {
		t.Fatalf("GetTheme(nope) = %q, want Paprika", got)
	}
}

func TestNextThemeCycles(t *testing.T) {
	names := ThemeNames()
	current := names[0]
	for i := 0; i < len(names); i++ {
		current = NextTheme(current)
	}
	if current != names[0] {
		t.Fatalf("cycling %d times ended at %q, want %q", len(names), current, names[0])
	}
}

func TestThemeNamesReturnsCopy(t *testing.T) {
	names := ThemeNames()
	names[0] = "mutated"
	if ThemeNames()[0] == "mutated" {
		t.Fatal("ThemeNames exposed internal slice")
	}
}
