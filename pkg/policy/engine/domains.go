package engine

import (
	"sort"
	"strings"

	"relief-hq/relief/pkg/policy/ast"
)

// DefaultSubjectDomains returns the built-in coarse subject categories.
// Policies may supply their own table under subject_domains.
func DefaultSubjectDomains() ast.SubjectDomains {
	return ast.SubjectDomains{
		"sciences":   {"science", "physics", "chemistry", "biology", "nature", "environment"},
		"math_tech":  {"math", "algebra", "geometry", "computer", "technology", "robotics", "engineering"},
		"languages":  {"english", "hebrew", "arabic", "french", "language", "literature", "reading", "grammar"},
		"humanities": {"history", "geography", "civics", "bible", "social", "philosophy", "heritage"},
		"arts":       {"art", "music", "drama", "theater", "dance", "sport", "physical education", "pe"},
	}
}

// domainsOf returns the sorted names of every domain whose aliases appear
// in subject. Matching is case-insensitive substring membership, except
// that aliases of three letters or fewer must equal a whole word.
func domainsOf(subject string, table ast.SubjectDomains) []string {
	s := strings.ToLower(strings.TrimSpace(subject))
	if s == "" {
		return nil
	}
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == ',' || r == '&'
	})

	var out []string
	for domain, aliases := range table {
		for _, alias := range aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if matchAlias(s, words, alias) {
				out = append(out, domain)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func matchAlias(subject string, words []string, alias string) bool {
	if len([]rune(alias)) > 3 {
		return strings.Contains(subject, alias)
	}
	for _, w := range words {
		if w == alias {
			return true
		}
	}
	return false
}

// sharesDomain reports whether any of subjects falls in a domain of target.
func sharesDomain(subjects []string, target string, table ast.SubjectDomains) bool {
	want := domainsOf(target, table)
	if len(want) == 0 {
		return false
	}
	for _, s := range subjects {
		for _, d := range domainsOf(s, table) {
			for _, w := range want {
				if d == w {
					return true
				}
			}
		}
	}
	return false
}
