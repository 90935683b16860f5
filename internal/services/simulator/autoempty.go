package simulator

import "fmt"

// EmptyRule empties a bin with Probability once it is at least MinLevel full
// and MinMinutes have passed since the last collection.
type EmptyRule struct {
	MinLevel    float64
	MinMinutes  float64
	Probability float64
}

// EmptyPolicy holds rules checked in order; the first matching rule decides.
type EmptyPolicy struct {
	Rules []EmptyRule
}

// DefaultEmptyPolicy is tuned so collections show up quickly in a demo.
func DefaultEmptyPolicy() EmptyPolicy {
	return EmptyPolicy{Rules: []EmptyRule{
		{MinLevel: 95, MinMinutes: 5, Probability: 0.5},
		{MinLevel: 85, MinMinutes: 10, Probability: 0.3},
	}}
}

// NewEmptyPolicy validates rules, keeping their order. No rules means the default policy.
func NewEmptyPolicy(rules []EmptyRule) (EmptyPolicy, error) {
	if len(rules) == 0 {
		return DefaultEmptyPolicy(), nil
	}
	out := make([]EmptyRule, len(rules))
	copy(out, rules)
	for i, r := range out {
		if r.Probability < 0 || r.Probability > 1 {
			return EmptyPolicy{}, fmt.Errorf("rule %d: probability %v outside [0,1]", i, r.Probability)
		}
		if r.MinLevel < 0 || r.MinLevel > 100 {
			return EmptyPolicy{}, fmt.Errorf("rule %d: min level %v outside [0,100]", i, r.MinLevel)
		}
		if r.MinMinutes < 0 {
			return EmptyPolicy{}, fmt.Errorf("rule %d: negative min minutes", i)
		}
	}
	return EmptyPolicy{Rules: out}, nil
}

// DecideEmpty applies the policy to a single uniform draw in [0,1).
func DecideEmpty(p EmptyPolicy, level, minutesSinceEmpty, draw float64) bool {
	for _, r := range p.Rules {
		if level >= r.MinLevel && minutesSinceEmpty >= r.MinMinutes {
			return draw < r.Probability
		}
	}
	return false
}

// Decider draws from a source to evaluate the policy.
type Decider struct {
	policy EmptyPolicy
	src    Source
}

func NewDecider(policy EmptyPolicy, src Source) *Decider {
	return &Decider{policy: policy, src: src}
}

// ShouldEmpty only consumes a draw when a rule matches.
func (d *Decider) ShouldEmpty(level, minutesSinceEmpty float64) bool {
	for _, r := range d.policy.Rules {
		if level >= r.MinLevel && minutesSinceEmpty >= r.MinMinutes {
			return d.src.Float64() < r.Probability
		}
	}
	return false
}

func (d *Decider) Policy() EmptyPolicy { return d.policy }
