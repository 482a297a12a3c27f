package stats

import (
	"encoding/json"
	"math"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestOf(t *testing.T) {
	tests := []struct {
		num, den    float64
		want        float64
		wantDefined bool
	}{
		{1, 2, 0.5, true},
		{0, 5, 0, true},
		{3, 0, 0, false},
		{0, 0, 0, false},
		{math.Inf(1), 1, 0, false},
		{math.NaN(), 1, 0, false},
	}
	for _, tt := range tests {
		got := Of(tt.num, tt.den)
		if got.Defined != tt.wantDefined || (got.Defined && got.Value != tt.want) {
			t.Errorf("Of(%v, %v) = %+v, want {%v %v}", tt.num, tt.den, got, tt.want, tt.wantDefined)
		}
	}
}

func TestRatio_Formatting(t *testing.T) {
	if got := Undefined().String(); got != NotApplicable {
		t.Errorf("Undefined().String() = %q, want %q", got, NotApplicable)
	}
	if got := Defined(0.5).Format(2); got != "0.50" {
		t.Errorf("Format(2) = %q, want 0.50", got)
	}
	if got := Defined(0.9912).Percent(2); got != "99.12%" {
		t.Errorf("Percent(2) = %q, want 99.12%%", got)
	}
	if got := Undefined().Percent(2); got != NotApplicable {
		t.Errorf("Undefined().Percent(2) = %q", got)
	}
}

func TestRatio_Arithmetic(t *testing.T) {
	if got := Defined(0.9).Sub(Defined(0.5)); !got.Defined || math.Abs(got.Value-0.4) > 1e-12 {
		t.Errorf("Sub = %+v", got)
	}
	if got := Defined(0.9).Sub(Undefined()); got.Defined {
		t.Errorf("Sub with undefined = %+v, want undefined", got)
	}
	if got := Defined(0.25).Scale(100); got.Value != 25 {
		t.Errorf("Scale = %+v", got)
	}
	if Defined(math.Inf(1)).Defined {
		t.Error("Defined(+Inf) should be undefined")
	}
}

func TestRatio_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}{Defined(0.25), Undefined()})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"a":0.25,"b":null}` {
		t.Errorf("Marshal = %s", data)
	}

	var back struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.A.Defined || back.A.Value != 0.25 || back.B.Defined {
		t.Errorf("Unmarshal = %+v", back)
	}
}

func TestRatio_YAML(t *testing.T) {
	data, err := yaml.Marshal(map[string]Ratio{"a": Defined(0.5), "b": Undefined()})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "a: 0.5\nb: null\n" {
		t.Errorf("Marshal = %q", data)
	}
}

func TestWilson(t *testing.T) {
	iv := Wilson(0, 0, Z95)
	if iv.Low.Defined || iv.High.Defined {
		t.Errorf("Wilson(0,0) = %+v, want undefined", iv)
	}

	tests := []struct {
		successes, total int
	}{
		{0, 100},
		{50, 100},
		{100, 100},
		{9912, 10000},
	}
	for _, tt := range tests {
		iv := Wilson(tt.successes, tt.total, Z95)
		p := float64(tt.successes) / float64(tt.total)
		if !iv.Low.Defined || !iv.High.Defined {
			t.Errorf("Wilson(%d,%d) undefined", tt.successes, tt.total)
			continue
		}
		if iv.Low.Value < 0 || iv.High.Value > 1 || iv.Low.Value > p+1e-12 || iv.High.Value < p-1e-12 {
			t.Errorf("Wilson(%d,%d) = [%v, %v] does not bracket %v within [0,1]",
				tt.successes, tt.total, iv.Low.Value, iv.High.Value, p)
		}
	}

	// Known value: 50/100 at 95% is roughly [0.4038, 0.5962].
	iv = Wilson(50, 100, Z95)
	if math.Abs(iv.Low.Value-0.4038) > 1e-3 || math.Abs(iv.High.Value-0.5962) > 1e-3 {
		t.Errorf("Wilson(50,100) = [%v, %v]", iv.Low.Value, iv.High.Value)
	}
}
