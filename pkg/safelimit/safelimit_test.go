package safelimit

import (
	"encoding/json"
	"math"
	"slices"
	"sync"
	"testing"

	"github.com/tosih/ecu-tuner/pkg/strategy"
)

const eps = 1e-9

func TestScenarios(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		value    float64
		risk     float64
		limit    float64
		safe     bool
		fallback bool
	}{
		{"heavy_duty_100", strategy.HeavyDuty, 100, 40, 187.5, true, false},
		{"eco_200", strategy.Eco, 200, 50, 300, true, false},
		{"diesel_at_limit", strategy.Diesel, 150, 75, 150, true, false},
		{"gasoline_over", strategy.Gasoline, 200, 100, 125, false, false},
		{"manual_clamped", strategy.Manual, 1000, 100, 100, false, false},
		{"zero", strategy.Eco, 0, 0, 300, true, false},
		{"unknown_160", "UnknownXYZ", 160, 96, 125, false, true},
	}

	e := New(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(tt.value, tt.strategy)
			if math.Abs(got.RiskScore-tt.risk) > eps {
				t.Errorf("risk = %v, want %v", got.RiskScore, tt.risk)
			}
			if math.Abs(got.HardLimit-tt.limit) > eps {
				t.Errorf("limit = %v, want %v", got.HardLimit, tt.limit)
			}
			if got.IsSafe != tt.safe {
				t.Errorf("safe = %v, want %v", got.IsSafe, tt.safe)
			}
			if got.Fallback != tt.fallback {
				t.Errorf("fallback = %v, want %v", got.Fallback, tt.fallback)
			}
		})
	}
}

func TestUnknownMatchesMostConservative(t *testing.T) {
	e := New(nil, nil)
	cons := strategy.Default().MostConservative()
	for _, v := range []float64{0, 50, 99.9, 100, 160, 400} {
		u := e.Evaluate(v, "UnknownXYZ")
		k := e.Evaluate(v, cons.Name)
		if u.RiskScore != k.RiskScore || u.HardLimit != k.HardLimit || u.IsSafe != k.IsSafe {
			t.Errorf("value %v: unknown %+v vs %s %+v", v, u, cons.Name, k)
		}
	}
	// the fallback ceiling is the lowest any non-override profile allows
	for _, p := range strategy.Default().Profiles() {
		if p.Override {
			continue
		}
		if r := Compute(160, p); r.HardLimit < e.Evaluate(160, "UnknownXYZ").HardLimit {
			t.Errorf("%s allows a lower ceiling than the fallback", p.Name)
		}
	}
}

func TestUnknownIsNeverManual(t *testing.T) {
	e := New(nil, nil)
	got := e.Evaluate(160, "UnknownXYZ")
	if got.Profile.Name == strategy.Manual {
		t.Fatalf("unknown strategy resolved to %s", strategy.Manual)
	}
	manual := e.Evaluate(160, strategy.Manual)
	if got.HardLimit == manual.HardLimit && got.RiskScore == manual.RiskScore {
		t.Errorf("unknown %+v matches Manual %+v", got, manual)
	}
	if got.Profile.Name != strategy.Gasoline || got.HardLimit != 125 {
		t.Errorf("unknown = %+v", got)
	}
}

func TestHardLimitStrictlyDecreasingInMultiplier(t *testing.T) {
	ps := strategy.Default().Profiles()
	slices.SortFunc(ps, func(a, b strategy.Profile) int {
		if a.Multiplier < b.Multiplier {
			return -1
		}
		return 1
	})
	for i := 1; i < len(ps); i++ {
		prev := Compute(0, ps[i-1]).HardLimit
		cur := Compute(0, ps[i]).HardLimit
		if !(cur < prev) {
			t.Errorf("%s limit %v not below %s limit %v", ps[i].Name, cur, ps[i-1].Name, prev)
		}
	}
}

func TestRiskMonotonicAndBounded(t *testing.T) {
	e := New(nil, nil)
	for _, name := range strategy.Default().Names() {
		prev := -1.0
		for v := 0.0; v <= 500; v += 0.5 {
			r := e.Evaluate(v, name)
			if r.RiskScore < 0 || r.RiskScore > 100 {
				t.Fatalf("%s@%v risk %v out of range", name, v, r.RiskScore)
			}
			if r.RiskScore < prev {
				t.Fatalf("%s risk decreased at %v: %v < %v", name, v, r.RiskScore, prev)
			}
			if r.IsSafe != (v <= r.HardLimit) {
				t.Fatalf("%s@%v is_safe drifted from hard_limit %v", name, v, r.HardLimit)
			}
			prev = r.RiskScore
		}
	}
}

func TestAmbiguousInputs(t *testing.T) {
	e := New(nil, nil)
	nan := e.Evaluate(math.NaN(), strategy.Diesel)
	if nan.RiskScore != 100 || nan.IsSafe {
		t.Errorf("NaN -> %+v", nan)
	}
	inf := e.Evaluate(math.Inf(1), strategy.Diesel)
	if inf.RiskScore != 100 || inf.IsSafe {
		t.Errorf("+Inf -> %+v", inf)
	}
	neg := e.Evaluate(-5, strategy.Diesel)
	if neg.RiskScore != 0 || !neg.IsSafe {
		t.Errorf("-5 -> %+v", neg)
	}
}

func TestJSONContract(t *testing.T) {
	b, err := json.Marshal(New(nil, nil).Evaluate(100, strategy.HeavyDuty))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if want := []string{"hard_limit", "is_safe", "risk_score"}; !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
}

func TestConcurrentEvaluate(t *testing.T) {
	e := New(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				r := e.Evaluate(float64(j%300), strategy.Default().Names()[i%5])
				if r.IsSafe != (float64(j%300) <= r.HardLimit) {
					t.Error("inconsistent result under concurrency")
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
