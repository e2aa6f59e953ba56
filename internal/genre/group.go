package genre

import "fmt"

// Unknown is the slug used for titles without a genre.
const Unknown = "unknown"

// GroupKey identifies one imputation group: a canonical primary genre and
// whether the titles are base games.
type GroupKey struct {
	Genre  string
	IsGame bool
}

// KeyOf builds the group key for a title's primary genre and type.
func KeyOf(primaryGenre string, isGame bool) GroupKey {
	g := Canonical(primaryGenre)
	if g == "" {
		g = Unknown
	}
	return GroupKey{Genre: g, IsGame: isGame}
}

// String renders the key as a log-friendly scope name.
func (k GroupKey) String() string {
	kind := "addon"
	if k.IsGame {
		kind = "game"
	}
	return fmt.Sprintf("%s/%s", k.Genre, kind)
}

// Less orders keys by genre, then games before add-ons.
func (k GroupKey) Less(other GroupKey) bool {
	if k.Genre != other.Genre {
		return k.Genre < other.Genre
	}
	return k.IsGame && !other.IsGame
}
