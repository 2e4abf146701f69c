package model

import (
	"math"
	"sort"

	"github.com/NorQuest-MLAD-Courses/cmpt2500w26-project-tutorial/pkg/errs"
)

// Params reads typed values out of an open hyperparameter map and records
// which keys were consumed. Values may arrive as YAML ints or as JSON
// float64s; integral floats are accepted where an int is expected.
type Params struct {
	raw  map[string]any
	used map[string]bool
	err  error
}

func newParams(raw map[string]any) *Params {
	return &Params{raw: raw, used: map[string]bool{}}
}

// Err returns the first type error seen.
func (p *Params) Err() error { return p.err }

// Unused lists keys that no reader asked for.
func (p *Params) Unused() []string {
	var out []string
	for k := range p.raw {
		if !p.used[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (p *Params) lookup(key string) (any, bool) {
	v, ok := p.raw[key]
	if ok {
		p.used[key] = true
	}
	return v, ok && v != nil
}

func (p *Params) fail(key, want string, v any) {
	if p.err == nil {
		p.err = errs.Configf("model.params."+key, "expected %s, got %v (%T)", want, v, v)
	}
}

// Int overwrites *dst when key is present.
func (p *Params) Int(key string, dst *int) {
	if v, ok := p.lookup(key); ok {
		n, good := asInt(v)
		if !good {
			p.fail(key, "an integer", v)
			return
		}
		*dst = int(n)
	}
}

// Int64 overwrites *dst when key is present.
func (p *Params) Int64(key string, dst *int64) {
	if v, ok := p.lookup(key); ok {
		n, good := asInt(v)
		if !good {
			p.fail(key, "an integer", v)
			return
		}
		*dst = n
	}
}

// Float overwrites *dst when key is present.
func (p *Params) Float(key string, dst *float64) {
	if v, ok := p.lookup(key); ok {
		switch x := v.(type) {
		case float64:
			*dst = x
		case float32:
			*dst = float64(x)
		case int:
			*dst = float64(x)
		case int64:
			*dst = float64(x)
		default:
			p.fail(key, "a number", v)
		}
	}
}

// Bool overwrites *dst when key is present.
func (p *Params) Bool(key string, dst *bool) {
	if v, ok := p.lookup(key); ok {
		b, good := v.(bool)
		if !good {
			p.fail(key, "a boolean", v)
			return
		}
		*dst = b
	}
}

// String overwrites *dst when key is present.
func (p *Params) String(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		s, good := v.(string)
		if !good {
			p.fail(key, "a string", v)
			return
		}
		*dst = s
	}
}

// Check records a config error for key when ok is false.
func (p *Params) Check(ok bool, key, msg string) {
	if !ok && p.err == nil {
		p.err = errs.Configf("model.params."+key, "%s", msg)
	}
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}
