package ge

import "testing"

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Nature rune", "Runes"},
		{"Rune platebody", "Armour"},
		{"Rune bar", "Ores & Bars"},
		{"Mithril ore", "Ores & Bars"},
		{"Shark", "Food"},
		{"Prayer potion(4)", "Potions"},
		{"Abyssal whip", "Weapons"},
		{"Amulet of fury", "Jewellery"},
		{"Ranarr seed", "Herblore"},
		{"Yew logs", "Logs & Planks"},
		{"Dragon bones", "Bones"},
		{"ABYSSAL WHIP", "Weapons"},
		{"Twisted buckler", OtherCategory},
		{"", OtherCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.name); got != tt.want {
				t.Errorf("Categorize(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestCategoriesEndsWithOther(t *testing.T) {
	cats := Categories()
	if cats[len(cats)-1] != OtherCategory {
		t.Errorf("last category = %q, want %q", cats[len(cats)-1], OtherCategory)
	}
}

func TestExclusions(t *testing.T) {
	e := NewExclusions("Dwarf remains", "  ")
	tests := []struct {
		name string
		want bool
	}{
		{"Old school bond", true},
		{"old SCHOOL bond (untradeable)", true},
		{"Clue scroll (hard)", true},
		{"Dwarf remains", true},
		{"Abyssal whip", false},
	}
	for _, tt := range tests {
		if got := e.Excluded(tt.name); got != tt.want {
			t.Errorf("Excluded(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	var none *Exclusions
	if none.Excluded("Old school bond") {
		t.Error("nil exclusions should exclude nothing")
	}
}
