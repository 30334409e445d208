package tagging

import (
	"reflect"
	"testing"
)

func set(langs ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(langs))
	for _, l := range langs {
		s[l] = struct{}{}
	}
	return s
}

func TestReconcile(t *testing.T) {
	rules := []Rule{
		{Language: "german", Tag: "german-audio"},
		{Language: "ja", Tag: "japanese-audio"},
	}
	tagIDs := map[string]int{
		"german-audio":   5,
		"japanese-audio": 9,
		"other":          3,
	}

	tests := []struct {
		name        string
		detected    map[string]struct{}
		rules       []Rule
		tagIDs      map[string]int
		current     []int
		wantNext    []int
		wantChanged bool
	}{
		{
			name:        "adds tag for detected language",
			detected:    set("german"),
			rules:       rules,
			tagIDs:      tagIDs,
			current:     []int{3},
			wantNext:    []int{3, 5},
			wantChanged: true,
		},
		{
			name:        "removes managed tag when language absent",
			detected:    set("english"),
			rules:       rules,
			tagIDs:      tagIDs,
			current:     []int{3, 5},
			wantNext:    []int{3},
			wantChanged: true,
		},
		{
			name:        "unmanaged tags untouched",
			detected:    set(),
			rules:       rules,
			tagIDs:      tagIDs,
			current:     []int{3, 42},
			wantNext:    []int{3, 42},
			wantChanged: false,
		},
		{
			name:        "already in desired state",
			detected:    set("german", "japanese"),
			rules:       rules,
			tagIDs:      tagIDs,
			current:     []int{5, 9},
			wantNext:    []int{5, 9},
			wantChanged: false,
		},
		{
			name:        "rule language normalized before matching",
			detected:    set("japanese"),
			rules:       []Rule{{Language: "jpn", Tag: "japanese-audio"}},
			tagIDs:      tagIDs,
			current:     nil,
			wantNext:    []int{9},
			wantChanged: true,
		},
		{
			name:        "missing server tag skipped",
			detected:    set("german"),
			rules:       []Rule{{Language: "german", Tag: "not-on-server"}},
			tagIDs:      tagIDs,
			current:     []int{3},
			wantNext:    []int{3},
			wantChanged: false,
		},
		{
			name:     "two rules sharing a tag union their languages",
			detected: set("french"),
			rules: []Rule{
				{Language: "german", Tag: "euro-audio"},
				{Language: "french", Tag: "euro-audio"},
			},
			tagIDs:      map[string]int{"euro-audio": 7},
			current:     nil,
			wantNext:    []int{7},
			wantChanged: true,
		},
		{
			name:        "no rules never changes anything",
			detected:    set("german"),
			rules:       nil,
			tagIDs:      tagIDs,
			current:     []int{5},
			wantNext:    []int{5},
			wantChanged: false,
		},
		{
			name:        "output sorted and deduplicated",
			detected:    set("german"),
			rules:       rules,
			tagIDs:      tagIDs,
			current:     []int{9, 3, 9},
			wantNext:    []int{3, 5},
			wantChanged: true,
		},
		{
			name:        "tag label matched case-insensitively",
			detected:    set("german"),
			rules:       []Rule{{Language: "german", Tag: "German-Audio"}},
			tagIDs:      tagIDs,
			current:     nil,
			wantNext:    []int{5},
			wantChanged: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed := Reconcile(tt.detected, tt.rules, tt.tagIDs, tt.current)
			if !reflect.DeepEqual(next, tt.wantNext) {
				t.Errorf("Reconcile next = %v, want %v", next, tt.wantNext)
			}
			if changed != tt.wantChanged {
				t.Errorf("Reconcile changed = %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		current     []int
		id          int
		present     bool
		wantNext    []int
		wantChanged bool
	}{
		{"add missing", []int{3}, 5, true, []int{3, 5}, true},
		{"add existing is no-op", []int{3, 5}, 5, true, []int{3, 5}, false},
		{"remove present", []int{3, 5}, 5, false, []int{3}, true},
		{"remove absent is no-op", []int{3}, 5, false, []int{3}, false},
		{"add to empty", nil, 5, true, []int{5}, true},
		{"result sorted", []int{9, 3}, 5, true, []int{3, 5, 9}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed := Apply(tt.current, tt.id, tt.present)
			if !reflect.DeepEqual(next, tt.wantNext) {
				t.Errorf("Apply next = %v, want %v", next, tt.wantNext)
			}
			if changed != tt.wantChanged {
				t.Errorf("Apply changed = %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}

func TestIntersectEpisodes(t *testing.T) {
	tests := []struct {
		name     string
		sets     []map[string]struct{}
		expected []string
	}{
		{"nil input", nil, nil},
		{"all empty", []map[string]struct{}{{}, {}}, nil},
		{
			"empty sets skipped",
			[]map[string]struct{}{{}, set("german"), set("german")},
			[]string{"german"},
		},
		{
			"intersection across files",
			[]map[string]struct{}{set("english", "german"), set("german", "japanese")},
			[]string{"german"},
		},
		{
			"disjoint files yield nothing",
			[]map[string]struct{}{set("english"), set("german")},
			nil,
		},
		{
			"single file passes through",
			[]map[string]struct{}{set("english", "german")},
			[]string{"english", "german"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IntersectEpisodes(tt.sets)
			if result == nil {
				t.Fatal("IntersectEpisodes returned nil, want non-nil map")
			}
			if len(result) != len(tt.expected) {
				t.Fatalf("IntersectEpisodes = %v, want %v", result, tt.expected)
			}
			for _, want := range tt.expected {
				if _, ok := result[want]; !ok {
					t.Errorf("IntersectEpisodes missing %q", want)
				}
			}
		})
	}
}
