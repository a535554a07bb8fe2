// Package search implements the unified exact/regex/fuzzy name-matching
// engine used by every inventory processor: a single FilterByName pass over
// a heterogeneous slice of model.InventoryObject values.
package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/emcd/librovore/pkg/model"
)

// FilterByName matches query against each object's Name according to
// behaviors.MatchMode, returning an ordered sequence of SearchResult: score
// descending, ties broken by name ascending.
func FilterByName(objects []model.InventoryObject, query string, behaviors model.SearchBehaviors) ([]model.SearchResult, error) {
	var (
		results []model.SearchResult
		err     error
	)

	switch behaviors.MatchMode {
	case model.MatchExact:
		results = filterExact(objects, query)
	case model.MatchRegex:
		results, err = filterRegex(objects, query)
	case model.MatchFuzzy, "":
		results = filterFuzzy(objects, query, behaviors.FuzzyThreshold)
	default:
		return nil, &model.InventoryFilterInvalidity{Message: fmt.Sprintf("unknown match mode %q", behaviors.MatchMode)}
	}

	if err != nil {
		return nil, err
	}

	sortResults(results)

	return results, nil
}

func filterExact(objects []model.InventoryObject, query string) []model.SearchResult {
	if query == "" {
		return nil
	}

	results := make([]model.SearchResult, 0, len(objects))

	for _, obj := range objects {
		if strings.EqualFold(obj.Name, query) {
			results = append(results, model.SearchResult{
				Object:       obj,
				Score:        1.0,
				MatchReasons: []string{"exact name"},
			})
		}
	}

	return results
}

func filterRegex(objects []model.InventoryObject, query string) ([]model.SearchResult, error) {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, &model.InventoryFilterInvalidity{Message: err.Error()}
	}

	results := make([]model.SearchResult, 0, len(objects))

	for _, obj := range objects {
		if re.MatchString(obj.Name) {
			results = append(results, model.SearchResult{
				Object:       obj,
				Score:        1.0,
				MatchReasons: []string{"regex match"},
			})
		}
	}

	return results, nil
}

func filterFuzzy(objects []model.InventoryObject, query string, threshold int) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(objects))

	if query == "" {
		for _, obj := range objects {
			results = append(results, model.SearchResult{
				Object:       obj,
				Score:        1.0,
				MatchReasons: []string{"empty query"},
			})
		}

		return results
	}

	for _, obj := range objects {
		ratio := similarityRatio(query, obj.Name)
		if ratio < float64(threshold) {
			continue
		}

		results = append(results, model.SearchResult{
			Object:       obj,
			Score:        ratio / 100,
			MatchReasons: []string{fmt.Sprintf("fuzzy match (%.0f%%)", ratio)},
		})
	}

	return results
}

func sortResults(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}

		return results[i].Object.Name < results[j].Object.Name
	})
}

// similarityRatio computes a normalized Levenshtein-ratio-style similarity
// between 0 and 100, case-insensitive: 100 * (1 - distance/max(len(a),len(b))).
func similarityRatio(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	if maxLen == 0 {
		return 100
	}

	distance := levenshteinDistance(a, b)

	return 100 * (1 - float64(distance)/float64(maxLen))
}

// levenshteinDistance computes the classic edit distance between two
// strings using a two-row dynamic-programming table.
func levenshteinDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ar); i++ {
		curr[0] = i

		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}

			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost

			curr[j] = min3(deletion, insertion, substitution)
		}

		prev, curr = curr, prev
	}

	return prev[len(br)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
