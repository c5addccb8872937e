package criteria

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Tier identifies one of the three fixed priority buckets a criterion can
// belong to. Each tier carries its own scoring ceiling.
type Tier int

const (
	MustHave Tier = iota
	GoodToHave
	NiceToHave
)

// Tiers lists all tiers in report order.
var Tiers = [...]Tier{MustHave, GoodToHave, NiceToHave}

// MinScore is the lower scoring bound shared by all tiers.
const MinScore = 0.0

// Label returns the wire/display name of the tier. These labels are part of
// the completion protocol and must not change.
func (t Tier) Label() string {
	switch t {
	case MustHave:
		return "Must have"
	case GoodToHave:
		return "Good to have"
	case NiceToHave:
		return "Nice to have"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// MaxScore returns the scoring ceiling for the tier.
func (t Tier) MaxScore() float64 {
	switch t {
	case MustHave:
		return 10
	case GoodToHave:
		return 5
	case NiceToHave:
		return 2
	default:
		return 0
	}
}

// TierByLabel resolves a wire label back to its tier.
func TierByLabel(label string) (Tier, bool) {
	for _, t := range Tiers {
		if t.Label() == label {
			return t, true
		}
	}
	return 0, false
}

// Criterion is a single named requirement extracted from a job description.
// The descriptor is free-form model output used only as prompt context.
type Criterion struct {
	Name       string
	Descriptor any
}

// Set is the full tiered criteria collection for one job description.
// Criteria keep their insertion order within a tier, which downstream
// consumers rely on for stable column ordering. A Set is never mutated after
// extraction.
type Set struct {
	tiers map[Tier][]Criterion
	extra map[string]json.RawMessage
}

// NewSet returns an empty criteria set.
func NewSet() *Set {
	return &Set{tiers: make(map[Tier][]Criterion)}
}

// Add appends a criterion to the tier. A name already present in the tier has
// its descriptor replaced in place, keeping the original position.
func (s *Set) Add(t Tier, name string, descriptor any) {
	for i, c := range s.tiers[t] {
		if c.Name == name {
			s.tiers[t][i].Descriptor = descriptor
			return
		}
	}
	s.tiers[t] = append(s.tiers[t], Criterion{Name: name, Descriptor: descriptor})
}

// Tier returns the criteria of the tier in insertion order. An absent tier
// yields an empty slice.
func (s *Set) Tier(t Tier) []Criterion {
	return s.tiers[t]
}

// Len returns the total number of criteria across all tiers.
func (s *Set) Len() int {
	n := 0
	for _, t := range Tiers {
		n += len(s.tiers[t])
	}
	return n
}

// Extra returns retained top-level keys that did not match a tier label.
// They are kept for forward compatibility and ignored by all consumers.
func (s *Set) Extra() map[string]json.RawMessage {
	return s.extra
}

// Parse decodes a JSON object into a Set, preserving the document order of
// criteria within each tier. Tier keys may be absent; non-object tier values
// are treated as empty tiers; unknown top-level keys are retained in Extra.
func Parse(data []byte) (*Set, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("criteria payload is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("criteria payload must be a JSON object, got %s", root.Type)
	}

	set := NewSet()
	root.ForEach(func(key, value gjson.Result) bool {
		tier, ok := TierByLabel(key.String())
		if !ok {
			if set.extra == nil {
				set.extra = make(map[string]json.RawMessage)
			}
			set.extra[key.String()] = json.RawMessage(value.Raw)
			return true
		}

		// A tier mapped to a non-object stays present but empty.
		if _, exists := set.tiers[tier]; !exists {
			set.tiers[tier] = []Criterion{}
		}
		if !value.IsObject() {
			return true
		}

		value.ForEach(func(name, descriptor gjson.Result) bool {
			set.Add(tier, name.String(), descriptor.Value())
			return true
		})
		return true
	})

	return set, nil
}

// MarshalJSON encodes the set as an object with the three tier labels in
// fixed order, criteria in insertion order, followed by any retained keys.
func (s *Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, t := range Tiers {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, err := json.Marshal(t.Label())
		if err != nil {
			return nil, err
		}
		buf.Write(label)
		buf.WriteByte(':')
		buf.WriteByte('{')
		for j, c := range s.tiers[t] {
			if j > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(c.Name)
			if err != nil {
				return nil, err
			}
			descriptor, err := json.Marshal(c.Descriptor)
			if err != nil {
				return nil, fmt.Errorf("marshal descriptor for %q: %w", c.Name, err)
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(descriptor)
		}
		buf.WriteByte('}')
	}

	// Retained keys go last so tier ordering stays stable for prompts.
	for key, raw := range s.extra {
		buf.WriteByte(',')
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(raw)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes via Parse so insertion order survives a round trip.
func (s *Set) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
