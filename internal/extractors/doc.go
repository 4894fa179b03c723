// Package extractors turns document bytes into plain text.
//
// Each format lives in its own subpackage and implements
// driven.TextExtractor. The Registry picks the highest priority extractor
// for a MIME type and falls back to extractors registered for "*/*".
package extractors
