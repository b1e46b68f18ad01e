// Package archive assembles fetched assets into a single ZIP archive.
//
// Entries are buffered in memory and written on [Builder.Finalize] in the
// order their names were first added. Compression uses deflate at the
// fastest level since assets are already-compressed images.
//
// Entry names come from [EntryName]: accents are folded, the result is
// lowercased, every rune outside [a-z0-9] becomes '_', and ".jpg" is
// appended. Two assets can therefore map to the same name. [Overwrite]
// (the default) keeps the last data added under that name; [Suffix] keeps
// both by appending -2, -3, ... before the extension.
package archive
