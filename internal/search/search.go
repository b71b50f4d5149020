// Package search computes match and visibility state over a catalog tree for
// a keyword and a level filter.
package search

import (
	"strings"

	"github.com/alexanderramin/choicetree/internal/catalog"
	"github.com/alexanderramin/choicetree/internal/domain"
)

// Filter restricts keyword hits to one tree level.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterGroup    Filter = "group"
	FilterSubGroup Filter = "subgroup"
	FilterPoint    Filter = "point"
	FilterChoice   Filter = "choice"
)

// ParseFilter maps user input to a Filter. Empty input means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterGroup, FilterSubGroup, FilterPoint, FilterChoice:
		return f, nil
	default:
		return "", domain.Invalid("filter", "unknown filter %q", s)
	}
}

// Result summarises a search run.
type Result struct {
	Keyword string
	Filter  Filter
	Count   int
}

// NoResults reports whether the "no results" notice should be shown.
func (r Result) NoResults() bool { return r.Count == 0 }

// Run resets every node to unmatched and then marks matches for keyword
// and filter. It returns the number of direct hits.
//
// A node whose label contains keyword (case-insensitive) at the filtered
// level is a hit; everything beneath a hit is shown. Ancestors of hits are
// marked matched and open without counting as hits themselves. Containers
// with no children are never matched.
func Run(tree *catalog.Tree, keyword string, filter Filter) Result {
	ResetAllMatchValues(tree, false)
	m := matcher{tree: tree, keyword: strings.ToLower(keyword), filter: filter}

	count := 0
	for _, g := range tree.Roots() {
		count += m.visit(g, false)
	}
	return Result{Keyword: keyword, Filter: filter, Count: count}
}

// Clear shows the whole tree again.
func Clear(tree *catalog.Tree) {
	ResetAllMatchValues(tree, true)
}

// ResetAllMatchValues sets every node's matched flag, and open flag on
// containers, to value.
func ResetAllMatchValues(tree *catalog.Tree, value bool) {
	tree.Walk(func(ref, _ int) bool {
		open := value
		if tree.Node(ref).Kind == domain.KindChoice {
			open = false
		}
		tree.SetMatch(ref, value, open)
		return true
	})
}

type matcher struct {
	tree    *catalog.Tree
	keyword string
	filter  Filter
}

func (m matcher) hit(n catalog.Node) bool {
	if m.filter != FilterAll && string(m.filter) != string(n.Kind) {
		return false
	}
	return strings.Contains(strings.ToLower(n.Label), m.keyword)
}

// visit returns the number of direct hits at or beneath ref.
func (m matcher) visit(ref int, inherit bool) int {
	n := m.tree.Node(ref)
	direct := m.hit(n)

	if n.Kind == domain.KindChoice {
		m.tree.SetMatch(ref, direct || inherit, false)
		if direct {
			return 1
		}
		return 0
	}

	if len(n.Children) == 0 {
		m.tree.SetMatch(ref, false, false)
		return 0
	}

	if direct || inherit {
		sub := 0
		for _, c := range n.Children {
			sub += m.visit(c, true)
		}
		m.tree.SetMatch(ref, true, true)
		if direct {
			sub++
		}
		return sub
	}

	sub := 0
	for _, c := range n.Children {
		sub += m.visit(c, false)
	}
	m.tree.SetMatch(ref, sub > 0, sub > 0)
	return sub
}
