// Package reembed regenerates the embeddings of existing conversations,
// typically after switching to a new embedding model.
//
// It walks the conversation store in batches, rebuilds each conversation's
// transcript, embeds the batch with retry and exponential backoff, and
// overwrites the stored vectors. Vectors are normalized to unit length so
// cosine similarity comparisons remain valid.
package reembed
