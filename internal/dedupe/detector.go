package dedupe

import (
	"sort"
	"strings"
	"time"
)

// Document is one article as seen by the detector. Date is the
// publish/creation timestamp used to pick the kept article.
type Document struct {
	ID      int64
	Slug    string
	Title   string
	Content string
	Date    time.Time
}

// Duplicate is a document judged to be a copy of a group's kept
// article, with the day-distance between their dates for reporting.
type Duplicate struct {
	Doc          Document
	DaysFromKeep int
}

// Group is one set of near-duplicate articles. Keep is the most
// recently dated member.
type Group struct {
	Keep       Document
	Duplicates []Duplicate
}

// Options tunes the detector. Zero values fall back to the defaults
// below.
type Options struct {
	// TitleThreshold is the minimum title similarity for a pair to be
	// considered at all.
	TitleThreshold float64
	// ContentThreshold is the minimum body similarity once titles
	// match, applied only when both bodies are long enough.
	ContentThreshold float64
	// MinContentLength is the minimum stripped-body length for a pair
	// to be comparable. Pairs where either body is shorter never
	// match, whatever their titles.
	MinContentLength int
	// TitleFilter, when set, restricts the corpus to titles containing
	// it (case-insensitive). The comparison is O(N²), so narrowing the
	// corpus is the practical way to run this against a large mirror.
	TitleFilter string
	Scorer      SimilarityScorer
}

const (
	defaultTitleThreshold   = 0.8
	defaultContentThreshold = 0.8
	defaultMinContentLength = 200
)

func (o Options) withDefaults() Options {
	if o.TitleThreshold == 0 {
		o.TitleThreshold = defaultTitleThreshold
	}
	if o.ContentThreshold == 0 {
		o.ContentThreshold = defaultContentThreshold
	}
	if o.MinContentLength == 0 {
		o.MinContentLength = defaultMinContentLength
	}
	if o.Scorer == nil {
		o.Scorer = LevenshteinScorer{}
	}
	return o
}

// FindGroups runs the pairwise comparison over the corpus and returns
// the duplicate groups it finds. Matching is transitive: if A matches B
// and B matches C, all three land in one group even if A and C would
// not match directly.
func FindGroups(corpus []Document, opts Options) []Group {
	opts = opts.withDefaults()

	docs := corpus
	if opts.TitleFilter != "" {
		filter := strings.ToLower(opts.TitleFilter)
		docs = nil
		for _, d := range corpus {
			if strings.Contains(strings.ToLower(d.Title), filter) {
				docs = append(docs, d)
			}
		}
	}

	prep := make([]prepared, len(docs))
	for i, d := range docs {
		prep[i] = prepared{
			doc:   d,
			title: NormalizeTitle(d.Title),
			body:  StripMarkup(d.Content),
		}
	}

	processed := make(map[int64]bool)
	var groups []Group

	for i := range prep {
		if processed[prep[i].doc.ID] {
			continue
		}

		members := []Document{prep[i].doc}
		processed[prep[i].doc.ID] = true

		// Compare the anchor against everything after it; members
		// added along the way pull in their own matches, which is what
		// makes grouping transitive.
		frontier := []prepared{prep[i]}
		for len(frontier) > 0 {
			anchor := frontier[0]
			frontier = frontier[1:]

			for j := range prep {
				cand := prep[j]
				if processed[cand.doc.ID] {
					continue
				}
				if !match(anchor, cand, opts) {
					continue
				}
				processed[cand.doc.ID] = true
				members = append(members, cand.doc)
				frontier = append(frontier, cand)
			}
		}

		if len(members) < 2 {
			continue
		}
		groups = append(groups, buildGroup(members))
	}
	return groups
}

// prepared carries a document with its comparison keys precomputed, so
// the O(N²) pass does not strip markup repeatedly.
type prepared struct {
	doc   Document
	title string
	body  string
}

func match(a, b prepared, opts Options) bool {
	if opts.Scorer.Score(a.title, b.title) < opts.TitleThreshold {
		return false
	}
	if len(a.body) < opts.MinContentLength || len(b.body) < opts.MinContentLength {
		// Not enough prose to compare. A title match alone is too weak
		// a signal to merge on, so the pair is skipped.
		return false
	}
	return opts.Scorer.Score(a.body, b.body) >= opts.ContentThreshold
}

func buildGroup(members []Document) Group {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Date.After(members[j].Date)
	})

	keep := members[0]
	dupes := make([]Duplicate, 0, len(members)-1)
	for _, m := range members[1:] {
		days := int(keep.Date.Sub(m.Date).Hours() / 24)
		if days < 0 {
			days = -days
		}
		dupes = append(dupes, Duplicate{Doc: m, DaysFromKeep: days})
	}
	return Group{Keep: keep, Duplicates: dupes}
}
