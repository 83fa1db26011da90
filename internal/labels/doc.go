// Package labels turns free-form completion text into a deduplicated label set.
//
// The pipeline has three pure stages and one network stage:
//
//  1. LocateAnswer drops the echoed prompt and returns the text after "### Response:".
//  2. ExtractCandidates collects comma-separated pieces from backtick-quoted segments.
//  3. Normalize maps candidates onto a taxonomy, keeping unknown labels in lowercase.
//
// Labeler ties these to a Completer so that a caller only hands in a prompt and
// gets back the labels to apply. A missing response section surfaces as
// ErrSectionNotFound; callers treat it, and an empty label set, as "nothing to apply".
package labels
