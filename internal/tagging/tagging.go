// Package tagging computes minimal tag set changes for remote library items
// from detected audio languages.
package tagging

import (
	"sort"
	"strings"

	"langarr/internal/language"
)

// Rule maps an audio language to the tag that should be present on an item
// whenever that language is heard on its files.
type Rule struct {
	Language string
	Tag      string
}

// Reconcile applies the audio tag rules to an item's current tag IDs.
// detected holds canonical language names, tagIDs maps lowercased tag labels
// to their server-side IDs, and current is the item's existing tag list.
// Tags not named by any rule are left untouched; rules whose tag does not
// exist on the server are skipped. The returned slice is sorted and
// deduplicated, and changed reports whether membership differs from current.
func Reconcile(detected map[string]struct{}, rules []Rule, tagIDs map[string]int, current []int) ([]int, bool) {
	// A tag is desired when any rule mapping to it names a detected
	// language, so later rules can only turn a tag on, never back off.
	desired := make(map[int]bool)
	for _, rule := range rules {
		id, ok := tagIDs[strings.ToLower(strings.TrimSpace(rule.Tag))]
		if !ok || id == 0 {
			continue
		}
		lang := language.Normalize(rule.Language)
		if lang == "" {
			continue
		}
		if _, hit := detected[lang]; hit {
			desired[id] = true
		} else if _, seen := desired[id]; !seen {
			desired[id] = false
		}
	}

	currentSet := make(map[int]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}

	nextSet := make(map[int]struct{}, len(current)+len(desired))
	for _, id := range current {
		if want, managed := desired[id]; managed && !want {
			continue
		}
		nextSet[id] = struct{}{}
	}
	for id, want := range desired {
		if want {
			nextSet[id] = struct{}{}
		}
	}

	next := make([]int, 0, len(nextSet))
	for id := range nextSet {
		next = append(next, id)
	}
	sort.Ints(next)

	return next, !sameMembership(currentSet, nextSet)
}

// Apply adds or removes a single tag ID, reporting whether the set changed.
// The returned slice is sorted and deduplicated.
func Apply(current []int, id int, present bool) ([]int, bool) {
	set := make(map[int]struct{}, len(current)+1)
	for _, tag := range current {
		set[tag] = struct{}{}
	}
	_, had := set[id]
	if present {
		set[id] = struct{}{}
	} else {
		delete(set, id)
	}

	next := make([]int, 0, len(set))
	for tag := range set {
		next = append(next, tag)
	}
	sort.Ints(next)

	return next, had != present
}

// IntersectEpisodes returns the languages heard on every episode file that
// reported any language at all. Files with no language information are
// skipped rather than zeroing the result, so a series with one unanalyzed
// episode still tags on what the remaining episodes agree on.
func IntersectEpisodes(sets []map[string]struct{}) map[string]struct{} {
	var result map[string]struct{}
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		if result == nil {
			result = make(map[string]struct{}, len(set))
			for lang := range set {
				result[lang] = struct{}{}
			}
			continue
		}
		for lang := range result {
			if _, ok := set[lang]; !ok {
				delete(result, lang)
			}
		}
	}
	if result == nil {
		return map[string]struct{}{}
	}
	return result
}

func sameMembership(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
