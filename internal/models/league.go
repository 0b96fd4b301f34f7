package models

// League identifies one of the two tracked competitions. Teams, games and
// stats are namespaced per league; nothing is ever shared across them.
type League string

const (
	LeagueMens   League = "mens"
	LeagueWomens League = "womens"
)

// Leagues returns both leagues in a fixed iteration order.
func Leagues() []League {
	return []League{LeagueMens, LeagueWomens}
}

// ProviderSlug returns the upstream path segment for the league.
func (l League) ProviderSlug() string {
	if l == LeagueWomens {
		return "womens-college-basketball"
	}
	return "mens-college-basketball"
}

// Valid reports whether the league is one of the two known values.
func (l League) Valid() bool {
	return l == LeagueMens || l == LeagueWomens
}
