// Package language provides unified language code normalization and mapping.
//
// All language-related conversions (ISO 639-1, ISO 639-2, display names,
// tag extraction) are consolidated here so the engine, the audio tag rules,
// and the per-instance original-language lists agree on codes.
package language
