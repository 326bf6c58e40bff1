package extractor

// Selectors used against the parsed document.
//
//nolint:gochecknoglobals // static lookup tables
var (
	titleSelector = "h1"
	textSelector  = "p"
	linkSelector  = "a[href]"

	// noiseSelectors are removed from paragraphs before their text is read.
	noiseSelectors = []string{
		"script",
		"style",
		"noscript",
		"sup.reference",
		".mw-editsection",
	}
)

// mergeSelectors combines selector lists into one comma-separated group,
// deduplicating so each selector appears only once.
func mergeSelectors(selectorLists ...[]string) string {
	seen := make(map[string]bool)
	merged := ""

	for _, selectors := range selectorLists {
		for _, selector := range selectors {
			if selector == "" || seen[selector] {
				continue
			}
			seen[selector] = true
			if merged != "" {
				merged += ", "
			}
			merged += selector
		}
	}

	return merged
}

// scopedSelectors prefixes each selector with scope as a descendant combinator.
func scopedSelectors(scope string, selectors []string) []string {
	scoped := make([]string, 0, len(selectors))
	for _, selector := range selectors {
		scoped = append(scoped, scope+" "+selector)
	}
	return scoped
}
