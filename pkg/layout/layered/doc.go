// Package layered computes a secondary, rank-based layout with Graphviz.
//
// The tree layout in [layout.Compute] is the primary engine. This package is
// the fallback mode: it hands the forest to Graphviz's dot algorithm with a
// fixed direction and fixed spacing, then copies the resulting coordinates
// back onto the nodes by id. Failure is never fatal; [Compute] returns the
// input nodes unchanged together with a LAYOUT_FAILED error.
//
// Coordinates follow the tree layout's convention: X is the node's left edge
// and Y its vertical center, in the same units as [layout.EstimateTextHeight].
//
// Results can be cached in any [cache.Cache]; keys hash the node sizes, the
// edges, and the options, so positions never affect the key.
//
// [ToDOT] and [RenderSVG] export a labelled diagram of the same graph.
//
// This package uses [github.com/goccy/go-graphviz], which bundles Graphviz
// as WebAssembly, so no system installation is required.
package layered
