// Package reasoner defines the narrow capability interface the engine uses
// to reach its external reasoning component: a single Call method taking a
// prompt and an expected-shape tag and returning a tagged result or an
// error. The five structured shapes plus free text form a closed variant
// set, so callers never parse provider payloads themselves.
//
// Provider adapters live in subpackages (openai, anthropic); a scriptable
// Mock backs tests and offline examples.
package reasoner
