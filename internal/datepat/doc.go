// Package datepat renders rotation filename patterns against captured
// calendar fields and decides when a pattern has expired.
//
// Patterns use a small run-based token language (yyyy, yy, M, MM, d, dd, HH,
// mm). Rendering and expiry are pure functions over a Fields snapshot, so the
// transport can capture fields once at open time and compare them against the
// clock on every write without re-parsing timestamps.
//
// Expiry only considers token families actually present in the pattern: a
// day-only pattern never expires on an hour change.
package datepat
