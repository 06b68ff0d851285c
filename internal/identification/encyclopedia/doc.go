// Package encyclopedia resolves encyclopedia cross-reference IDs (Anime News
// Network) for catalog candidates whose external links carry none.
//
// Titles are first matched against a local reports.xml snapshot by token
// containment, the surviving IDs are fetched in batches from the XML API
// (or served from the detail cache), and the resulting entries are re-ranked
// by air-date proximity, name edit distance, and type agreement.
//
// Vintage text comes in several shapes. Entries without any detail data get
// UnresolvedVintageNoInfo; vintage text that cannot be parsed gets
// UnresolvedVintage. Both sit far in the future so such entries lose every
// air-date comparison. They are deliberately distinct values.
package encyclopedia
