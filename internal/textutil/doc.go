// Package textutil provides the string and token-set similarity primitives used
// by every resolver, plus the title sanitizers that feed them.
//
// The primary use cases are:
//   - Edit distance between raw or sanitized titles
//   - Jaccard, Dice, and overlap similarity over title token lists
//   - A descending comparator with an edit-distance tie-break
//   - Sanitizing anime titles into comparable ASCII token streams
//
// Token-set similarities compute their intersection by membership test rather
// than multiset intersection, so repeated tokens in the first list each count
// toward the intersection. Resolvers depend on that exact behaviour.
package textutil
