package domain

// MapFeed projects a decoded feed onto domain events, one per feature and in
// feed order. It never fails and never filters; an empty feed maps to an empty,
// non-nil slice.
func MapFeed(feed WireFeed) []Event {
	events := make([]Event, len(feed.Features))
	for i, f := range feed.Features {
		events[i] = MapFeature(f)
	}
	return events
}

// MapFeature renames a single wire feature into an Event.
func MapFeature(f WireFeature) Event {
	return Event{
		ID:               f.ID,
		Magnitude:        f.Properties.Mag,
		Place:            f.Properties.Place,
		OccurredAtMillis: f.Properties.Time,
		DetailURL:        f.Properties.URL,
	}
}
