// Package ingestion runs uploaded documents through extraction, chunking,
// embedding and indexing.
//
// Submit persists a pipeline-owned copy of the upload, fingerprints it and
// either reports a duplicate or registers a pending job and returns
// immediately. A worker goroutine per job then drives the job through its
// stages:
//   - detect: sniff the document family
//   - extract: page text and image blobs
//   - chunk: split page text into segments
//   - embed_text: embed each chunk and write it to the text collection
//   - describe_images: describe each image with the vision collaborator
//   - embed_images: embed each description and write it to the image collection
//
// Embedding and description calls from all jobs share one bounded worker
// pool. A stage failure fails only its job; entries already written stay
// in the index.
package ingestion
