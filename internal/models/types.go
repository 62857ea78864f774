package models

// MediaKind represents the kind of library item carried by a deletion event
type MediaKind string

const (
	KindEpisode MediaKind = "episode"
	KindSeason  MediaKind = "season"
	KindTVShow  MediaKind = "tvshow"
	KindMovie   MediaKind = "movie"
)

// IsTV reports whether the kind belongs to the TV hierarchy
func (k MediaKind) IsTV() bool {
	return k == KindEpisode || k == KindSeason || k == KindTVShow
}

// Provider is an external metadata namespace
type Provider string

const (
	ProviderTVDB Provider = "tvdb"
	ProviderIMDB Provider = "imdb"
	ProviderTMDB Provider = "tmdb"
)

// Lookup priority per hierarchy. TV catalogs index by tvdb first, movie catalogs by tmdb.
var (
	TVProviderOrder    = []Provider{ProviderTVDB, ProviderIMDB, ProviderTMDB}
	MovieProviderOrder = []Provider{ProviderTMDB, ProviderIMDB}
)

// ProviderOrder returns the lookup priority for a kind
func ProviderOrder(kind MediaKind) []Provider {
	if kind.IsTV() {
		return TVProviderOrder
	}
	return MovieProviderOrder
}

// Outcome represents the final state of a processed event
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeIgnored Outcome = "ignored"
)

// MatchMethod records how a downstream entity was found
type MatchMethod string

const (
	MatchNone       MatchMethod = "none"
	MatchIdentifier MatchMethod = "identifier"
	MatchName       MatchMethod = "name"
)
