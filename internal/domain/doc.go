// Package domain models the USGS real-time earthquake feed and the simplified
// event shape the rest of the service works with.
//
// # Data Source
//
// Events come from the USGS Earthquake Hazards Program GeoJSON summary feeds,
// documented at https://earthquake.usgs.gov/earthquakes/feed/v1.0/geojson.php.
// The service reads the "all earthquakes, past hour" feed. The document is a
// GeoJSON FeatureCollection; only a handful of its members are used here.
//
// # Wire Shape
//
//	{
//	  "type": "FeatureCollection",
//	  "metadata": {...},
//	  "features": [
//	    {
//	      "type": "Feature",
//	      "id": "ak0247qf1mwk",
//	      "properties": {"mag": 1.6, "place": "34 km NW of Anchor Point, Alaska",
//	                     "time": 1700000000000, "url": "https://earthquake.usgs.gov/..."},
//	      "geometry": {...}
//	    }
//	  ]
//	}
//
// Everything other than features[].id and features[].properties.{mag,place,time,url}
// is ignored, including members USGS may add in the future.
//
// # Field Conventions
//
//	mag:   magnitude as a JSON number, scale depends on the network (ml, md, mb, mww...).
//	place: human readable location, e.g. "10km N of Testville".
//	time:  origin time in integer milliseconds since the Unix epoch (UTC).
//	url:   event page on earthquake.usgs.gov.
//
// USGS occasionally publishes "mag": null for events still under review. A null
// or missing required member makes the whole document invalid: [DecodeFeed]
// rejects it with a [DecodeError] rather than publishing a partial snapshot.
//
// # Mapping
//
// [MapFeed] projects each wire feature onto an [Event] one-to-one, in feed order.
// It never filters or deduplicates; duplicate IDs from upstream pass through.
package domain
