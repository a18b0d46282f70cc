package indexes

import "strings"

type indexPattern struct {
	pattern string
	code    string
}

// Known fund index names, checked in order as case-insensitive substrings.
// More specific patterns come first.
var indexPatterns = []indexPattern{
	{"MSCI World", "msci_world"},
	{"S&P 500", "sp500"},
	{"MSCI Emerging Markets", "msci_em"},
	{"MSCI EM", "msci_em"},
	{"MSCI Europe", "msci_europe"},
	{"STOXX Europe 600", "stoxx600"},
	{"STOXX® Europe 600", "stoxx600"},
	{"EURO STOXX 600", "stoxx600"},
}

// MatchIndexPattern resolves a free-text fund index name against the built-in
// pattern table. Returns false when nothing matches.
func MatchIndexPattern(indexName string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(indexName))
	if name == "" {
		return "", false
	}
	for _, p := range indexPatterns {
		if strings.Contains(name, strings.ToLower(p.pattern)) {
			return p.code, true
		}
	}
	return "", false
}
