// Package vision decodes photographed or scanned dental quotes.
//
// The model is an external collaborator: an Analyzer receives one image and
// returns the acts it read. This package owns the prompt, the reply parsing and
// the mapping of analyzed acts onto the CCAM catalog.
package vision
