// Package slug derives canonical URL-safe identifiers from article
// titles and keeps them unique against the slug alias table.
//
// Titles in any script are accepted: Han characters are transliterated
// to pinyin syllables, accented Latin characters are folded to ASCII,
// and anything left over collapses into hyphens. Bulk-imported content
// historically carried machine-generated slugs (random alphanumeric
// suffixes, raw CJK); the hygiene pass in this package detects and
// regenerates those.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxLength is the slug length cap used when a Resolver does not
// override it.
const DefaultMaxLength = 80

var (
	// dropRunes are deleted outright rather than treated as separators,
	// so "Next.js" becomes "nextjs", not "next-js".
	dropRunes = strings.NewReplacer(".", "", "'", "", "’", "", "&", "")

	separatorRuns = regexp.MustCompile(`[^a-z0-9]+`)

	// foreignSuffix matches trailing hyphenated groups of 4-8 lowercase
	// alphanumerics, the shape bulk importers append to disambiguate
	// colliding filenames.
	foreignSuffix = regexp.MustCompile(`(?:[-_][a-z0-9]{4,8})+$`)

	pinyinArgs = pinyin.NewArgs()

	foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slugify derives a URL-safe slug from a free-text title, truncated to
// maxLength (0 means DefaultMaxLength). Uniqueness is the Resolver's
// job; this is the pure text transform.
func Slugify(title string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	folded, _, err := transform.String(foldDiacritics, title)
	if err != nil {
		folded = title
	}
	folded = dropRunes.Replace(folded)

	// Expand Han runes to pinyin, one hyphen-separated syllable per
	// character; everything else passes through for the separator pass.
	var sb strings.Builder
	for _, r := range folded {
		if unicode.Is(unicode.Han, r) {
			if syllables := pinyin.SinglePinyin(r, pinyinArgs); len(syllables) > 0 {
				sb.WriteByte(' ')
				sb.WriteString(syllables[0])
				sb.WriteByte(' ')
				continue
			}
		}
		sb.WriteRune(r)
	}

	s := strings.ToLower(sb.String())
	s = separatorRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return truncateAtHyphen(s, maxLength)
}

// truncateAtHyphen cuts s to at most max bytes, preferring the last
// hyphen boundary in the second half of the budget so words are not
// split mid-way when avoidable.
func truncateAtHyphen(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexByte(cut, '-'); idx > max/2 {
		cut = cut[:idx]
	}
	return strings.Trim(cut, "-")
}

// HasForeignSuffix reports whether a slug ends in the random
// alphanumeric suffix pattern left behind by bulk imports: one or more
// trailing groups of 4-8 lowercase alphanumerics. The matched tail must
// contain a digit; purely alphabetic tails are ordinary words.
func HasForeignSuffix(slug string) bool {
	tail := foreignSuffix.FindString(slug)
	if tail == "" {
		return false
	}
	return strings.ContainsAny(tail, "0123456789")
}

// ContainsNonLatinScript reports whether the slug still carries letters
// outside the Latin script (CJK, Cyrillic, and so on), meaning it was
// never transliterated.
func ContainsNonLatinScript(slug string) bool {
	for _, r := range slug {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
