package labels

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/steveyegge/labeler/internal/taxonomy"
)

// mask replaces matched bytes; it never occurs in a label so masked text cannot match again
const mask = '\x00'

// candidateSeparator joins candidates before matching so that their
// boundaries split residual fragments
const candidateSeparator = ", "

// Fragment is a label found in the joined candidate text, located by byte offset
// into the case-folded text.
type Fragment struct {
	Label     string
	Start     int
	End       int
	Canonical bool // true when Label came from the taxonomy
}

// MaskMatches finds every taxonomy entry in text, longest entries first, and
// masks each occurrence so shorter entries and the residual split cannot reuse
// it. An occurrence only counts when the characters around it are not label
// characters, so "bug" does not match inside "debugger".
//
// Matching uses taxonomy.Fold, the same folding as Lookup. It returns the
// matches in taxonomy casing, and the folded text with the matched regions masked.
func MaskMatches(text string, tax *taxonomy.Taxonomy) ([]Fragment, string) {
	buf := []byte(taxonomy.Fold(text))

	entries := tax.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i]) > len(entries[j])
	})

	var matches []Fragment
	for _, entry := range entries {
		needle := taxonomy.Fold(entry)
		from := 0
		for from <= len(buf)-len(needle) {
			idx := strings.Index(string(buf[from:]), needle)
			if idx < 0 {
				break
			}
			start, end := from+idx, from+idx+len(needle)
			if !isBoundary(buf, start, end) {
				from = start + 1
				continue
			}
			matches = append(matches, Fragment{Label: entry, Start: start, End: end, Canonical: true})
			for i := start; i < end; i++ {
				buf[i] = mask
			}
			from = end
		}
	}
	return matches, string(buf)
}

// Residuals splits masked text into the leftover unrecognized fragments,
// trimmed and non-empty, already case-folded.
func Residuals(masked string) []Fragment {
	var out []Fragment
	start := 0
	flush := func(end int) {
		piece := masked[start:end]
		trimmed := strings.TrimSpace(piece)
		if trimmed != "" {
			offset := start + strings.Index(piece, trimmed)
			out = append(out, Fragment{Label: trimmed, Start: offset, End: offset + len(trimmed)})
		}
	}
	for i := 0; i < len(masked); i++ {
		if masked[i] == ',' || masked[i] == mask {
			flush(i)
			start = i + 1
		}
	}
	flush(len(masked))
	return out
}

// Normalize maps candidates onto the taxonomy. Candidates, or parts of them,
// that equal a taxonomy entry ignoring case come back in canonical casing;
// everything else is kept as a case-folded (lowercase) unrecognized label. The result is
// ordered by position in the candidate text and holds no case-insensitive
// duplicates.
func Normalize(candidates []string, tax *taxonomy.Taxonomy) []string {
	if len(candidates) == 0 {
		return []string{}
	}

	matches, masked := MaskMatches(strings.Join(candidates, candidateSeparator), tax)
	fragments := append(matches, Residuals(masked)...)
	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].Start < fragments[j].Start
	})

	return Dedupe(fragmentLabels(fragments))
}

// Dedupe drops case-insensitive repeats, keeping the first occurrence.
func Dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		key := taxonomy.Fold(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	return out
}

func fragmentLabels(fragments []Fragment) []string {
	out := make([]string, len(fragments))
	for i, f := range fragments {
		out[i] = f.Label
	}
	return out
}

// isBoundary reports whether buf[start:end] is not glued to neighbouring label characters
func isBoundary(buf []byte, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRune(buf[:start])
		if isLabelRune(r) {
			return false
		}
	}
	if end < len(buf) {
		r, _ := utf8.DecodeRune(buf[end:])
		if isLabelRune(r) {
			return false
		}
	}
	return true
}

func isLabelRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}
