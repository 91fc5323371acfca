package model

// DiscoveredElement is one extractable page element reported by the
// discovery service.
type DiscoveredElement struct {
	// CSSClass is the class name. Empty means the element has no class.
	CSSClass string `json:"css_class"`

	// TagName is the HTML tag name (e.g. "div", "a").
	TagName string `json:"tag_name"`

	// ElementCount is how many elements on the page carry this class.
	ElementCount int `json:"element_count"`

	// ExampleContent is sample text or HTML of one matching element.
	ExampleContent string `json:"example_content"`

	// SuggestedXPath is an XPath the service proposes for the element.
	SuggestedXPath string `json:"suggested_xpath"`

	// IsLink reports whether the element is (or wraps) a hyperlink.
	IsLink bool `json:"is_link"`
}

// HasClass reports whether the element carries a CSS class.
func (e DiscoveredElement) HasClass() bool {
	return e.CSSClass != ""
}

// Result is the element lists produced by one successful discovery.
// A Result is replaced wholesale by the next discovery, never patched.
type Result struct {
	// Classes are elements found through their CSS class.
	Classes []DiscoveredElement `json:"classes"`

	// OtherData are the remaining elements (ids, classless data).
	OtherData []DiscoveredElement `json:"other_datas"`
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	out := Result{}
	if r.Classes != nil {
		out.Classes = append(make([]DiscoveredElement, 0, len(r.Classes)), r.Classes...)
	}
	if r.OtherData != nil {
		out.OtherData = append(make([]DiscoveredElement, 0, len(r.OtherData)), r.OtherData...)
	}
	return out
}

// Len returns the total number of elements.
func (r Result) Len() int {
	return len(r.Classes) + len(r.OtherData)
}

// IsEmpty reports whether no element was discovered.
func (r Result) IsEmpty() bool {
	return r.Len() == 0
}

// Links returns every element flagged as a link, classes first.
func (r Result) Links() []DiscoveredElement {
	var links []DiscoveredElement
	for _, list := range [][]DiscoveredElement{r.Classes, r.OtherData} {
		for _, e := range list {
			if e.IsLink {
				links = append(links, e)
			}
		}
	}
	return links
}

// Find returns the first element with the given CSS class.
func (r Result) Find(cssClass string) (DiscoveredElement, bool) {
	for _, list := range [][]DiscoveredElement{r.Classes, r.OtherData} {
		for _, e := range list {
			if e.CSSClass == cssClass {
				return e, true
			}
		}
	}
	return DiscoveredElement{}, false
}
