package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v2"
)

// Magnitudes outside this range are almost certainly corrupt data.
const (
	minPlausibleMag = -2.0
	maxPlausibleMag = 10.0
)

// Clock skew tolerated before an event counts as being in the future.
const futureSkew = time.Minute

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a saved feed document",
		Description: `Decodes a locally saved GeoJSON summary feed and runs integrity checks:
decoding, duplicate IDs, timestamps, detail URLs and magnitudes.

Exits non-zero if any phase fails.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "path to a saved feed document",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return fmt.Errorf("read feed file: %w", err)
			}
			if code := runValidate(data, c.App.Writer, clockwork.NewRealClock()); code != 0 {
				return cli.Exit("validation failed", code)
			}
			return nil
		},
	}
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func runValidate(data []byte, out io.Writer, clock clockwork.Clock) int {
	fmt.Fprintln(out, "=== Earthquake Feed Validation ===")
	fmt.Fprintln(out)

	decode := &phase{name: "Phase 1: Decode"}
	feed, err := domain.DecodeFeed(data)
	if err != nil {
		decode.errorf("%v", err)
	}

	phases := []*phase{decode}
	if decode.passed() {
		phases = append(phases,
			validateUniqueIDs(feed),
			validateTimestamps(feed, clock.Now()),
			validateDetailURLs(feed),
			validateMagnitudes(feed),
		)
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Events: %d\n", len(feed.Features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validateUniqueIDs(feed domain.WireFeed) *phase {
	p := &phase{name: "Phase 2: Unique IDs"}
	seen := make(map[string]int, len(feed.Features))
	for i, f := range feed.Features {
		if first, ok := seen[f.ID]; ok {
			p.errorf("features[%d]: id %q duplicates features[%d]", i, f.ID, first)
			continue
		}
		seen[f.ID] = i
	}
	return p
}

func validateTimestamps(feed domain.WireFeed, now time.Time) *phase {
	p := &phase{name: "Phase 3: Timestamps"}
	limit := now.Add(futureSkew)
	for i, f := range feed.Features {
		at := time.UnixMilli(f.Properties.Time)
		if at.After(limit) {
			p.errorf("features[%d] (%s): time %s is in the future", i, f.ID, at.UTC().Format(time.RFC3339))
		}
	}
	return p
}

func validateDetailURLs(feed domain.WireFeed) *phase {
	p := &phase{name: "Phase 4: Detail URLs"}
	for i, f := range feed.Features {
		u, err := url.Parse(f.Properties.URL)
		if err != nil {
			p.errorf("features[%d] (%s): %v", i, f.ID, err)
			continue
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			p.errorf("features[%d] (%s): url %q is not absolute http(s)", i, f.ID, f.Properties.URL)
		}
	}
	return p
}

func validateMagnitudes(feed domain.WireFeed) *phase {
	p := &phase{name: "Phase 5: Magnitudes"}
	for i, f := range feed.Features {
		if m := f.Properties.Mag; m < minPlausibleMag || m > maxPlausibleMag {
			p.errorf("features[%d] (%s): magnitude %g outside [%g, %g]", i, f.ID, m, minPlausibleMag, maxPlausibleMag)
		}
	}
	return p
}
