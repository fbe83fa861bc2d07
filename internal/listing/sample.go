package listing

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed data/listings.json
var sampleJSON []byte

// Sample returns the embedded demo listings spread over the reference cities.
func Sample() ([]Listing, error) {
	var ls []Listing
	if err := json.Unmarshal(sampleJSON, &ls); err != nil {
		return nil, fmt.Errorf("decode embedded listings: %w", err)
	}
	return ls, nil
}
