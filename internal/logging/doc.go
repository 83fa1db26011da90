// Package logging builds the zap logger shared by the labeler.
//
// Library packages accept a *zap.Logger and fall back to zap.NewNop when
// given nil, so only the command layer calls New.
package logging
