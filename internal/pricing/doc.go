// Package pricing holds the display arithmetic shown to patients and practitioners:
// option tiers, monthly financing, inaction scenarios, social proof and dashboard stats.
package pricing
