package query

import "sort"

// Params maps placeholder names to the values bound to them.
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with every entry of others added. Later maps win
// on conflicting names.
func (p Params) Merge(others ...Params) Params {
	out := p.Clone()
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Names returns the bound names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Statement is template text plus the values its placeholders refer to.
type Statement struct {
	Text   string
	Params Params
}
