package listing

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Number is an optional numeric field. The zero value is absent. A present Number may
// hold NaN, which marks input that could not be read as a number.
type Number struct {
	val     float64
	present bool
}

// Num returns a present Number holding v.
func Num(v float64) Number { return Number{val: v, present: true} }

// Invalid returns the not-a-number marker.
func Invalid() Number { return Number{val: math.NaN(), present: true} }

// ParseNumber reads a numeric field of a listing file. Blank input is absent; anything
// that is not a finite float is the not-a-number marker.
func ParseNumber(raw string) Number {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return Invalid()
	}
	return Num(v)
}

// ParseFormNumber reads a field typed into the create form. A blank field is zero;
// otherwise it behaves like ParseNumber.
func ParseFormNumber(raw string) Number {
	if strings.TrimSpace(raw) == "" {
		return Num(0)
	}
	return ParseNumber(raw)
}

// Present reports whether the field was supplied at all.
func (n Number) Present() bool { return n.present }

// IsNaN reports whether the field was supplied but is not a number.
func (n Number) IsNaN() bool { return n.present && math.IsNaN(n.val) }

// Float returns the value and whether it is usable in a numeric comparison.
func (n Number) Float() (float64, bool) {
	if !n.present || math.IsNaN(n.val) {
		return 0, false
	}
	return n.val, true
}

// String renders the value, or "-" when it is absent or not a number.
func (n Number) String() string {
	v, ok := n.Float()
	if !ok {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// MarshalJSON writes absent as null and the NaN marker as the string "NaN".
func (n Number) MarshalJSON() ([]byte, error) {
	switch {
	case !n.present:
		return []byte("null"), nil
	case math.IsNaN(n.val):
		return []byte(`"NaN"`), nil
	default:
		return json.Marshal(n.val)
	}
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*n = Invalid()
		return nil //nolint:nilerr // permissive: malformed values become the NaN marker
	}
	*n = Num(v)
	return nil
}

// UnmarshalYAML accepts scalars; null and empty scalars are absent.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		*n = Number{}
		return nil
	}
	*n = ParseNumber(node.Value)
	return nil
}

// JSONSchema describes the accepted encodings.
func (Number) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "number"},
			{Type: "string", Description: "numeric text; anything else is stored as not-a-number"},
			{Type: "null"},
		},
	}
}
