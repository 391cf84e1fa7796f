// Package glyph implements the ontogenic machine: a six-stage,
// self-modifying transformation pipeline over a single mutable State.
//
// A pass applies the stages in fixed order (DeltaEmpty, LambdaNull,
// PsiInvert, MuDelta, OmegaContour, UnknownGlyph), each reading and
// mutating the shared State in place. The order is load-bearing: later
// stages consume fields populated by earlier ones. Randomness is drawn
// from an explicit generator owned by the Machine, never from global
// state.
package glyph
