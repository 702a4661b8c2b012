// Package strategy holds the fixed table of tuning strategies.
package strategy

import (
	"slices"
)

// Profile is a named tuning strategy. A higher Multiplier means a riskier
// strategy and therefore a tighter ceiling.
type Profile struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"risk_multiplier"`
	// Override marks a profile the user must pick by name. Manual hands the
	// ceiling to the tuner, so it is never chosen as a fallback.
	Override bool `json:"override"`
}

// Strategy names
const (
	HeavyDuty = "Heavy Duty"
	Gasoline  = "Gasoline"
	Diesel    = "Diesel"
	Eco       = "Eco"
	Manual    = "Manual"
)

// Table is an immutable set of profiles. Its methods never mutate it, so a
// single Table is shared by every concurrent evaluation.
type Table struct {
	profiles     []Profile
	byName       map[string]int
	conservative int
}

var defaultTable = NewTable([]Profile{
	{Name: HeavyDuty, Multiplier: 0.8},
	{Name: Gasoline, Multiplier: 1.2},
	{Name: Diesel, Multiplier: 1.0},
	{Name: Eco, Multiplier: 0.5},
	{Name: Manual, Multiplier: 1.5, Override: true},
})

// Default returns the process-wide table, built once at start-up.
func Default() *Table {
	return defaultTable
}

// NewTable builds a table. The ceiling falls as the multiplier rises, so
// the non-override profile with the highest multiplier is the conservative
// fallback. When every profile is an override the highest multiplier wins.
// Profiles with a non-positive multiplier are skipped; at least one valid
// profile is required.
func NewTable(profiles []Profile) *Table {
	t := &Table{byName: make(map[string]int, len(profiles))}
	for _, p := range profiles {
		if !(p.Multiplier > 0) {
			continue
		}
		t.byName[p.Name] = len(t.profiles)
		t.profiles = append(t.profiles, p)
	}
	for i, p := range t.profiles {
		if safer(p, t.profiles[t.conservative]) {
			t.conservative = i
		}
	}
	return t
}

// safer reports whether p is a better fallback than cur.
func safer(p, cur Profile) bool {
	if p.Override != cur.Override {
		return !p.Override
	}
	return p.Multiplier > cur.Multiplier
}

// Lookup is an exact, case-sensitive match.
func (t *Table) Lookup(name string) (Profile, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Profile{}, false
	}
	return t.profiles[i], true
}

// MostConservative is the fallback for unknown names: the lowest hard limit
// among profiles that are not overrides.
func (t *Table) MostConservative() Profile {
	return t.profiles[t.conservative]
}

// Profiles returns a copy of the entries in declaration order.
func (t *Table) Profiles() []Profile {
	return slices.Clone(t.profiles)
}

// Names lists the profile names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.profiles))
	for i, p := range t.profiles {
		names[i] = p.Name
	}
	return names
}
