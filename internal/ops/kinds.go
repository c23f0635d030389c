package ops

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Attrs are the key/value parameters of one configured operation.
type Attrs map[string]string

type constructor func(kind string, a *attrReader) (Operation, error)

// kinds maps configuration names to constructors. factorN names the shrink
// factor at which the first halving fires.
var kinds = map[string]constructor{
	"orient": func(string, *attrReader) (Operation, error) {
		return NewOrient(), nil
	},
	"factor2":  factorKind(2),
	"factor15": factorKind(1.5),
	"finish": func(_ string, a *attrReader) (Operation, error) {
		t, err := a.float("threshold", DefaultFinishThreshold)
		if err != nil {
			return nil, err
		}
		return NewFinish(t)
	},
	"sharpen": func(_ string, a *attrReader) (Operation, error) {
		w, err := a.float("weight", 12)
		if err != nil {
			return nil, err
		}
		gated, err := a.boolean("only-if-changed", false)
		if err != nil {
			return nil, err
		}
		return NewSharpen(w, gated)
	},
	"gaussiansharpen": func(_ string, a *attrReader) (Operation, error) {
		sigma, err := a.float("sigma", 1)
		if err != nil {
			return nil, err
		}
		amount, err := a.float("amount", 1)
		if err != nil {
			return nil, err
		}
		threshold, err := a.float("threshold", 0)
		if err != nil {
			return nil, err
		}
		gated, err := a.boolean("only-if-changed", false)
		if err != nil {
			return nil, err
		}
		return NewGaussianSharpen(sigma, amount, threshold, gated)
	},
	"minfactor": func(_ string, a *attrReader) (Operation, error) {
		m, err := a.float("min", 1)
		if err != nil {
			return nil, err
		}
		return NewMinFactor(m)
	},
}

func factorKind(threshold float64) constructor {
	return func(kind string, a *attrReader) (Operation, error) {
		base, err := a.float("base", 2)
		if err != nil {
			return nil, err
		}
		if !(base > 1) {
			return nil, &ConfigError{Kind: kind, Attr: "base", Err: fmt.Errorf("must be greater than 1, got %v", base)}
		}
		bias, err := a.float("bias", ThresholdBias(base, threshold))
		if err != nil {
			return nil, err
		}
		return NewFactor(kind, base, bias)
	}
}

// Build constructs the operation registered under kind. Unknown kinds,
// unknown attributes and malformed values fail with a *ConfigError.
func Build(kind string, attrs Attrs) (Operation, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	ctor, ok := kinds[kind]
	if !ok {
		return nil, &ConfigError{Kind: kind, Err: ErrUnknownKind}
	}
	a := &attrReader{kind: kind, attrs: attrs, seen: make(map[string]bool, len(attrs))}
	op, err := ctor(kind, a)
	if err != nil {
		return nil, err
	}
	if err := a.unused(); err != nil {
		return nil, err
	}
	return op, nil
}

// Kinds lists the registered kind names in sorted order.
func Kinds() []string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type attrReader struct {
	kind  string
	attrs Attrs
	seen  map[string]bool
}

func (a *attrReader) lookup(name string) (string, bool) {
	a.seen[name] = true
	v, ok := a.attrs[name]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (a *attrReader) float(name string, def float64) (float64, error) {
	v, ok := a.lookup(name)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ConfigError{Kind: a.kind, Attr: name, Err: err}
	}
	return f, nil
}

func (a *attrReader) boolean(name string, def bool) (bool, error) {
	v, ok := a.lookup(name)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigError{Kind: a.kind, Attr: name, Err: err}
	}
	return b, nil
}

func (a *attrReader) unused() error {
	for name := range a.attrs {
		if !a.seen[name] {
			return &ConfigError{Kind: a.kind, Attr: name, Err: errors.New("not a parameter of this operation")}
		}
	}
	return nil
}
