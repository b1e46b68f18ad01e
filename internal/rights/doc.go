// Package rights decides whether an asset's usage-rights window is active.
//
// A window has two optional dates, each either ISO-8601 or day-first
// DD/MM/YYYY. The decision table is:
//
//	start   end     active
//	-----   -----   ------
//	blank   blank   true (no restriction)
//	set     blank   false
//	blank   set     false
//	set     set     start <= now <= end
//
// A date that is set but cannot be parsed counts as missing, which makes the
// window inactive. Date-only values are midnight in the evaluator's location.
//
// DD/MM/YYYY is always read day-first: 01/02/2024 is 1 February 2024.
package rights
