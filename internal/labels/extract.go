package labels

import "strings"

const delimiter = '`'

// ExtractCandidates returns the comma-separated pieces of every backtick-quoted
// segment in answer, trimmed, in order of appearance. An unpaired trailing
// backtick is ignored. Text without any segment yields an empty slice.
func ExtractCandidates(answer string) []string {
	candidates := []string{}
	rest := answer
	for {
		open := strings.IndexByte(rest, delimiter)
		if open < 0 {
			break
		}
		closing := strings.IndexByte(rest[open+1:], delimiter)
		if closing < 0 {
			break
		}
		segment := rest[open+1 : open+1+closing]
		rest = rest[open+1+closing+1:]

		for _, piece := range strings.Split(segment, ",") {
			if piece = strings.TrimSpace(piece); piece != "" {
				candidates = append(candidates, piece)
			}
		}
	}
	return candidates
}
