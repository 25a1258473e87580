// Command quakefeed keeps a live snapshot of the USGS past-hour earthquake
// feed and serves it over HTTP, optionally mirroring every snapshot to Kafka.
//
// Usage:
//
//	quakefeed serve
//	quakefeed fetch
//	quakefeed validate --file testdata/all_hour.geojson
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "quakefeed",
		Usage: "Live snapshot of the USGS past-hour earthquake feed",
		Description: `Fetches the USGS "all earthquakes, past hour" GeoJSON summary,
maps it to compact events and publishes each snapshot to subscribers.

Service settings are read from environment variables, e.g.:

HTTP_ADDR=:8080 REFRESH_INTERVAL=5m KAFKA_BROKERS=localhost:9092`,
		Commands: []*cli.Command{
			serveCmd(),
			fetchCmd(),
			validateCmd(),
		},
	}
}
