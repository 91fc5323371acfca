package model

// ElementKey identifies an element across two discoveries of the same page.
type ElementKey struct {
	CSSClass string `json:"css_class"`
	TagName  string `json:"tag_name"`
}

// Key returns the identity of e used when comparing results.
func (e DiscoveredElement) Key() ElementKey {
	return ElementKey{CSSClass: e.CSSClass, TagName: e.TagName}
}

// CountChange is an element present in both results with a different count.
type CountChange struct {
	ElementKey
	Before int `json:"before"`
	After  int `json:"after"`
}

// Delta returns After - Before.
func (c CountChange) Delta() int {
	return c.After - c.Before
}

// ResultDiff lists how a newer result differs from an older one.
type ResultDiff struct {
	Added   []DiscoveredElement `json:"added"`
	Removed []DiscoveredElement `json:"removed"`
	Changed []CountChange       `json:"changed"`
}

// IsEmpty reports whether both results hold the same elements and counts.
func (d ResultDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// CompareResults diffs two results by element key. Added and Changed follow
// the order of newer, Removed the order of older. When a key appears more
// than once the counts are summed.
func CompareResults(older, newer Result) ResultDiff {
	oldCounts, oldOrder := countByKey(older)
	newCounts, newOrder := countByKey(newer)

	var diff ResultDiff
	for _, e := range newOrder {
		before, ok := oldCounts[e.Key()]
		after := newCounts[e.Key()]
		switch {
		case !ok:
			diff.Added = append(diff.Added, e)
		case before != after:
			diff.Changed = append(diff.Changed, CountChange{ElementKey: e.Key(), Before: before, After: after})
		}
	}
	for _, e := range oldOrder {
		if _, ok := newCounts[e.Key()]; !ok {
			diff.Removed = append(diff.Removed, e)
		}
	}
	return diff
}

// countByKey sums element counts per key and returns the first element seen
// for each key in order.
func countByKey(r Result) (map[ElementKey]int, []DiscoveredElement) {
	counts := make(map[ElementKey]int, r.Len())
	var order []DiscoveredElement
	for _, list := range [][]DiscoveredElement{r.Classes, r.OtherData} {
		for _, e := range list {
			if _, seen := counts[e.Key()]; !seen {
				order = append(order, e)
			}
			counts[e.Key()] += e.ElementCount
		}
	}
	return counts, order
}
