// Package registry filters and searches agent-registry records for the
// dashboard's agents browser.
package registry

import (
	"strings"

	"command-center/pkg/model"
)

// Filter names the predefined registry subsets.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterVerified Filter = "verified" // trustLayer == ERC-8004
	FilterHighRep  Filter = "high-rep" // reputation > 80
)

// Next cycles through the filters in display order.
func (f Filter) Next() Filter {
	switch f {
	case FilterAll:
		return FilterVerified
	case FilterVerified:
		return FilterHighRep
	default:
		return FilterAll
	}
}

// Apply returns the agents matching the filter and, when query is non-empty,
// a case-insensitive search across name, description and id.
func Apply(agents []model.Agent, f Filter, query string) []model.Agent {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Agent, 0, len(agents))
	for _, a := range agents {
		if !matchFilter(a, f) {
			continue
		}
		if q != "" && !matchQuery(a, q) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchFilter(a model.Agent, f Filter) bool {
	switch f {
	case FilterVerified:
		return a.TrustLayer == model.TrustLayerERC8004
	case FilterHighRep:
		return a.Reputation > 80
	default:
		return true
	}
}

func matchQuery(a model.Agent, q string) bool {
	return strings.Contains(strings.ToLower(a.Name), q) ||
		strings.Contains(strings.ToLower(a.Description), q) ||
		strings.Contains(strings.ToLower(a.ID), q)
}
