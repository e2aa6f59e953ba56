package genre

// canonicalAliases folds common spellings of the same genre onto one slug so
// that sparse variants share a group.
var canonicalAliases = map[string]string{
	"rpg":                  "role-playing",
	"role-playing-game":    "role-playing",
	"roleplaying":          "role-playing",
	"jrpg":                 "role-playing",
	"crpg":                 "role-playing",
	"action-rpg":           "action-role-playing",
	"arpg":                 "action-role-playing",
	"fps":                  "shooter",
	"first-person-shooter": "shooter",
	"third-person-shooter": "shooter",
	"shoot-em-up":          "shooter",
	"shmup":                "shooter",
	"rts":                  "strategy",
	"real-time-strategy":   "strategy",
	"turn-based-strategy":  "strategy",
	"tbs":                  "strategy",
	"4x":                   "strategy",
	"platformer":           "platform",
	"platforming":          "platform",
	"roguelike":            "roguelike",
	"rogue-like":           "roguelike",
	"roguelite":            "roguelike",
	"rogue-lite":           "roguelike",
	"sim":                  "simulation",
	"simulator":            "simulation",
	"point-and-click":      "adventure",
	"graphic-adventure":    "adventure",
	"action-adventure":     "action",
	"beat-em-up":           "fighting",
	"hack-and-slash":       "action",
	"racing-driving":       "racing",
	"driving":              "racing",
	"sports-racing":        "sports",
	"mmo":                  "massively-multiplayer",
	"mmorpg":               "massively-multiplayer",
	"puzzle-platformer":    "puzzle",
	"visual-novel":         "visual-novel",
	"vn":                   "visual-novel",
}

// Canonical returns the canonical slug for a raw genre label.
// Labels without an alias return their own slug.
func Canonical(raw string) string {
	slug := Slugify(raw)
	if canonical, ok := canonicalAliases[slug]; ok {
		return canonical
	}
	return slug
}
