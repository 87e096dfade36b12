package openai

// describeImagePrompt asks the vision model for a retrieval-oriented
// description. Descriptions are embedded and matched against user questions,
// so visible text and quantities matter more than style.
const describeImagePrompt = `Describe this image for a document search index.

Include:
- what the image shows (chart, diagram, photo, table, screenshot, ...)
- any visible text, labels, axis titles and legends, transcribed exactly
- key numbers, trends or relationships the image communicates

Write plain prose in at most five sentences. Do not speculate about content
that is not visible and do not add preamble such as "This image shows".`
