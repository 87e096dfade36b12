// Package extract turns a stored upload into page text and image blobs.
//
// Format parsing is delegated: PDF and plain-text/HTML loading come from
// langchaingo's document loaders, OOXML files are read directly from their
// zip parts, and PDF page renders come from an optional PageImager. The
// Router picks an Extractor by detected Kind, and the Chunker splits page
// text into embedding-sized segments.
package extract
