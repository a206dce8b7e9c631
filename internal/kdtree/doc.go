// Package kdtree implements a static k-d tree over n-dimensional points with
// exact and best-bin-first (BBF) nearest-neighbor search.
//
// # Construction
//
// A tree is built once from a batch of points and is immutable afterwards.
// At depth d the index range is split at its positional median along
// dimension d mod k (quickselect by column), so the cut dimension cycles with
// depth and the tree is balanced by construction. A range holding at most
// bucketSize-1 points becomes a leaf. Point coordinates are copied into the
// tree's own contiguous leaf storage; the caller's slice may be reused after
// Build returns.
//
// Each point carries a typed payload (commonly an index into a caller-owned
// table) that the tree never interprets.
//
// # Search
//
// NearestNeighbor performs depth-first branch-and-bound search: the far side
// of a split is visited only when the squared distance from the query to the
// splitting plane does not exceed the best distance found so far. Unbudgeted,
// the result is exact.
//
// NearestNeighborBBF visits leaves in order of increasing lower-bound
// distance from the query to each bin, kept in a bounded priority queue. The
// lower bound is updated incrementally per split. Unbudgeted, the result is
// also exact; under a leaf budget it is usually a far better approximation
// than truncated depth-first search.
//
// Both variants accept Options.MaxLeaves to bound work (checked at leaf
// boundaries) and Options.CollectCandidates to return, in ascending distance,
// every point that improved the running best during the search. This supports
// second-nearest style ratio tests.
//
// # Thread Safety
//
// Queries allocate their own search state, so a built Tree may be queried from
// multiple goroutines concurrently.
package kdtree
