// Package jurisdiction answers which server is authoritative for a piece of
// octree space.
//
// A Map claims everything under its root address except the subtrees under
// each of its end nodes, which have been handed to other servers. Maps are
// advertised between nodes as packets (see PackInto and UnpackFrom) and kept
// on disk as small INI files (see FromFile and WriteFile).
//
// A Map is not safe for concurrent mutation. Build it, then share it read-only
// or hand out clones.
package jurisdiction
