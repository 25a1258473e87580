package domain

// WireFeed mirrors the upstream FeatureCollection. Only the members the service
// reads are declared; unknown members are ignored when decoding.
type WireFeed struct {
	Features []WireFeature `json:"features"`
}

// WireFeature is a single earthquake in the upstream feed.
type WireFeature struct {
	ID         string         `json:"id"`
	Properties WireProperties `json:"properties"`
}

// WireProperties holds the upstream property names verbatim.
type WireProperties struct {
	Mag   float64 `json:"mag"`
	Place string  `json:"place"`
	Time  int64   `json:"time"` // epoch milliseconds
	URL   string  `json:"url"`
}

// Event is the service's stable view of an earthquake, decoupled from the
// upstream naming and nesting. Events are values; nothing mutates one after
// MapFeed builds it.
type Event struct {
	ID               string  `json:"id"`
	Magnitude        float64 `json:"magnitude"`
	Place            string  `json:"place"`
	OccurredAtMillis int64   `json:"occurred_at_millis"`
	DetailURL        string  `json:"detail_url"`
}
