package filter

import "math"

// bucket is a numeric range, open below and closed above. The lowest bucket of a
// table has no lower bound and the highest has no upper bound.
type bucket struct {
	tag   string
	label string
	lo    float64
	hi    float64
}

func (b bucket) contains(v float64) bool {
	return v > b.lo && v <= b.hi
}

//nolint:gochecknoglobals // immutable lookup tables.
var (
	priceBuckets = []bucket{
		{tag: "0-1", label: "Up to ₹1 Cr", lo: math.Inf(-1), hi: 1},
		{tag: "1-5", label: "₹1 Cr to ₹5 Cr", lo: 1, hi: 5},
		{tag: "5+", label: "Above ₹5 Cr", lo: 5, hi: math.Inf(1)},
	}
	carpetBuckets = []bucket{
		{tag: "0-1000", label: "Up to 1000 sq ft", lo: math.Inf(-1), hi: 1000},
		{tag: "1000-2500", label: "1000 to 2500 sq ft", lo: 1000, hi: 2500},
		{tag: "2500-5000", label: "2500 to 5000 sq ft", lo: 2500, hi: 5000},
		{tag: "5000+", label: "Above 5000 sq ft", lo: 5000, hi: math.Inf(1)},
	}
	bhkOptions = []Option{
		{Value: "1", Label: "1 BHK"},
		{Value: "2", Label: "2 BHK"},
		{Value: "3", Label: "3 BHK"},
		{Value: "4", Label: "4 BHK"},
		{Value: "5+", Label: "5 BHK"},
	}
	typeOptions = []Option{
		{Value: "residential", Label: "Residential"},
		{Value: "commercial", Label: "Commercial"},
		{Value: "plot", Label: "Plot"},
	}
)

func lookupBucket(table []bucket, tag string) (bucket, bool) {
	for _, b := range table {
		if b.tag == tag {
			return b, true
		}
	}
	return bucket{}, false
}

// Option is one selectable value of a dimension.
type Option struct {
	Value string
	Label string
}

// Vocabulary lists the options offered for d, in display order.
func Vocabulary(d Dimension) []Option {
	switch d {
	case Price:
		return bucketOptions(priceBuckets)
	case Carpet:
		return bucketOptions(carpetBuckets)
	case BHK:
		return append([]Option(nil), bhkOptions...)
	case Type:
		return append([]Option(nil), typeOptions...)
	default:
		return nil
	}
}

func bucketOptions(table []bucket) []Option {
	out := make([]Option, len(table))
	for i, b := range table {
		out[i] = Option{Value: b.tag, Label: b.label}
	}
	return out
}
