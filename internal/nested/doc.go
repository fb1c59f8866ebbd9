// Package nested resolves query templates that reference other named
// templates.
//
// A template is SQL text with embedded markers:
//
//	:<name>:        shared reference, one CTE or temp table per name
//	:<+name>:       shared, MATERIALIZED CTE
//	:<-name>:       shared, NOT MATERIALIZED CTE
//	:<=name>:       inline, replaced by "(subquery) _name"
//	:<=name>: x     inline with explicit alias x
//	:|a.b|:         identifier, quoted part by part
//
// Templates are lexed once into typed segments (Text, Reference,
// QuoteSpan). Order builds the dependency graph, recording for every key
// the longest distance from the root. The two builders walk that graph
// deepest first:
//
//   - BuildCTE emits one WITH clause; every shared key becomes a CTE
//     defined before anything that reads it.
//   - BuildTemp emits CREATE TEMP TABLE statements, the load query and
//     DROP statements, dropping each table as soon as nothing left to
//     build reads it.
//
// Substitution is a bounded fixed-point loop over segments: an inline
// expansion can bring in markers of its own, which the next pass replaces.
// Quote markers are resolved last, when the segments are serialized.
//
// Unknown names, cycles, nesting beyond the max depth and malformed
// markers are errors (see package qerr); nothing is partially resolved.
package nested
