package ge

import "strings"

// OtherCategory is assigned when no keyword matches.
const OtherCategory = "Other"

type categoryRule struct {
	name     string
	keywords []string
}

// categoryRules is ordered; the first rule with a matching keyword wins.
var categoryRules = []categoryRule{
	{"Runes", []string{
		"air rune", "water rune", "earth rune", "fire rune", "mind rune", "body rune",
		"cosmic rune", "chaos rune", "nature rune", "law rune", "death rune", "blood rune",
		"soul rune", "astral rune", "wrath rune", "rune essence",
	}},
	{"Potions", []string{"potion", "brew", "restore", "prayer mix", "divine", "stamina", "antifire", "antivenom", "anti-venom"}},
	{"Food", []string{"shark", "manta ray", "karambwan", "anglerfish", "lobster", "swordfish", "monkfish", "pie", "stew"}},
	{"Weapons", []string{"sword", "scimitar", "whip", "bow", "crossbow", "dagger", "mace", "maul", "staff", "wand", "spear", "halberd", "blowpipe", "axe", "trident"}},
	{"Armour", []string{"helm", "platebody", "platelegs", "plateskirt", "chainbody", "shield", "boots", "gloves", "chaps", "coif", "robe", "body", "legs", "cape"}},
	{"Jewellery", []string{"ring", "amulet", "necklace", "bracelet"}},
	{"Ammunition", []string{"arrow", "bolt", "dart", "javelin", "knife", "chinchompa"}},
	{"Herblore", []string{"grimy", "herb", "seed", "vial", "eye of newt", "snape grass"}},
	{"Logs & Planks", []string{"logs", "plank"}},
	{"Ores & Bars", []string{" ore", " bar", "coal"}},
	{"Gems", []string{"sapphire", "emerald", "ruby", "diamond", "dragonstone", "onyx", "zenyte"}},
	{"Hides", []string{"hide", "leather"}},
	{"Bones", []string{"bones", "ashes"}},
}

// Categorize assigns a category by case-insensitive keyword match against the
// item name, falling back to OtherCategory.
func Categorize(name string) string {
	// Leading space lets " ore" and " bar" match at the start of a name too.
	lower := " " + strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.name
			}
		}
	}
	return OtherCategory
}

// Categories returns every category name in match order, followed by OtherCategory.
func Categories() []string {
	out := make([]string, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		out = append(out, rule.name)
	}
	return append(out, OtherCategory)
}
