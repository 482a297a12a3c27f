// Package stats holds the small amount of arithmetic the reports need,
// with every division guarded so that undefined results are explicit
// instead of NaN or Inf.
package stats

import (
	"encoding/json"
	"math"
	"strconv"
)

// NotApplicable is how an undefined ratio renders.
const NotApplicable = "n/a"

// Ratio is a computed quantity that may be undefined, for example a rate
// over zero samples or a reduction relative to zero baseline failures.
type Ratio struct {
	Value   float64
	Defined bool
}

// Of returns num/den, undefined when den is zero or the result is not finite.
func Of(num, den float64) Ratio {
	if den == 0 {
		return Undefined()
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined()
	}
	return Ratio{Value: v, Defined: true}
}

// Defined wraps a finite value. Non-finite input yields Undefined.
func Defined(v float64) Ratio {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined()
	}
	return Ratio{Value: v, Defined: true}
}

// Undefined returns the explicit "not applicable" ratio.
func Undefined() Ratio {
	return Ratio{}
}

// Get returns the value and whether it is defined.
func (r Ratio) Get() (float64, bool) {
	return r.Value, r.Defined
}

// Sub returns r - o, undefined if either side is.
func (r Ratio) Sub(o Ratio) Ratio {
	if !r.Defined || !o.Defined {
		return Undefined()
	}
	return Defined(r.Value - o.Value)
}

// Scale returns r * k, undefined if r is.
func (r Ratio) Scale(k float64) Ratio {
	if !r.Defined {
		return Undefined()
	}
	return Defined(r.Value * k)
}

// String formats the value with four decimals, or "n/a".
func (r Ratio) String() string {
	return r.Format(4)
}

// Format formats the value with prec decimals, or "n/a".
func (r Ratio) Format(prec int) string {
	if !r.Defined {
		return NotApplicable
	}
	return strconv.FormatFloat(r.Value, 'f', prec, 64)
}

// Percent formats the value as a percentage with prec decimals, or "n/a".
func (r Ratio) Percent(prec int) string {
	if !r.Defined {
		return NotApplicable
	}
	return strconv.FormatFloat(r.Value*100, 'f', prec, 64) + "%"
}

// MarshalJSON encodes an undefined ratio as null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON decodes null as undefined.
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Defined(v)
	return nil
}

// MarshalYAML encodes an undefined ratio as null.
func (r Ratio) MarshalYAML() (interface{}, error) {
	if !r.Defined {
		return nil, nil
	}
	return r.Value, nil
}

// Interval is a two-sided confidence interval.
type Interval struct {
	Low  Ratio `json:"low" yaml:"low"`
	High Ratio `json:"high" yaml:"high"`
}

// Z95 is the normal quantile for a 95% two-sided interval.
const Z95 = 1.959963984540054

// Wilson returns the Wilson score interval for successes out of total.
// It stays inside [0,1] even at 0% or 100% observed rates, which the normal
// approximation does not. Zero total yields an undefined interval.
func Wilson(successes, total int, z float64) Interval {
	if total <= 0 || successes < 0 || successes > total {
		return Interval{Low: Undefined(), High: Undefined()}
	}
	n := float64(total)
	p := float64(successes) / n
	z2 := z * z
	denom := 1 + z2/n
	center := (p + z2/(2*n)) / denom
	half := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom
	return Interval{
		Low:  Defined(math.Max(0, center-half)),
		High: Defined(math.Min(1, center+half)),
	}
}
