package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// The raw* types use pointers so an absent or null member can be told apart
// from a zero value.
type rawFeed struct {
	Features *[]*rawFeature `json:"features"`
}

type rawFeature struct {
	ID         *string        `json:"id"`
	Properties *rawProperties `json:"properties"`
}

type rawProperties struct {
	Mag   *float64 `json:"mag"`
	Place *string  `json:"place"`
	Time  *int64   `json:"time"`
	URL   *string  `json:"url"`
}

// DecodeFeed parses a feed payload into a WireFeed. It fails with *DecodeError
// when the payload is not JSON, when a required member has the wrong JSON type,
// or when one is missing. Unknown members are ignored.
func DecodeFeed(data []byte) (WireFeed, error) {
	var raw rawFeed
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return WireFeed{}, &DecodeError{Path: typeErr.Field, Err: fmt.Errorf("want %s, got JSON %s", typeErr.Type, typeErr.Value)}
		}
		return WireFeed{}, &DecodeError{Err: err}
	}

	if raw.Features == nil {
		return WireFeed{}, &DecodeError{Path: "features", Err: ErrMissingField}
	}

	features := make([]WireFeature, 0, len(*raw.Features))
	for i, rf := range *raw.Features {
		f, err := rf.toWire(fmt.Sprintf("features[%d]", i))
		if err != nil {
			return WireFeed{}, err
		}
		features = append(features, f)
	}
	return WireFeed{Features: features}, nil
}

func (rf *rawFeature) toWire(path string) (WireFeature, error) {
	if rf == nil {
		return WireFeature{}, &DecodeError{Path: path, Err: ErrMissingField}
	}
	if rf.ID == nil {
		return WireFeature{}, &DecodeError{Path: path + ".id", Err: ErrMissingField}
	}
	if *rf.ID == "" {
		return WireFeature{}, &DecodeError{Path: path + ".id", Err: fmt.Errorf("%w: empty id", ErrInvalidField)}
	}

	p := rf.Properties
	propsPath := path + ".properties"
	switch {
	case p == nil:
		return WireFeature{}, &DecodeError{Path: propsPath, Err: ErrMissingField}
	case p.Mag == nil:
		return WireFeature{}, &DecodeError{Path: propsPath + ".mag", Err: ErrMissingField}
	case p.Place == nil:
		return WireFeature{}, &DecodeError{Path: propsPath + ".place", Err: ErrMissingField}
	case p.Time == nil:
		return WireFeature{}, &DecodeError{Path: propsPath + ".time", Err: ErrMissingField}
	case p.URL == nil:
		return WireFeature{}, &DecodeError{Path: propsPath + ".url", Err: ErrMissingField}
	}
	if *p.Time < 0 {
		return WireFeature{}, &DecodeError{Path: propsPath + ".time", Err: fmt.Errorf("%w: negative epoch millis %d", ErrInvalidField, *p.Time)}
	}

	return WireFeature{
		ID: *rf.ID,
		Properties: WireProperties{
			Mag:   *p.Mag,
			Place: *p.Place,
			Time:  *p.Time,
			URL:   *p.URL,
		},
	}, nil
}
