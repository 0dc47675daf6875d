// Package quote owns the patient cart, practitioner quotes and the magic link lifecycle.
//
// Ownership boundary:
// - cart and draft editing rules
// - quote totals and reste à charge
// - link issue, expiry and open tracking
//
// Persistence lives in package store; this package only transforms values.
package quote
