// Package mock provides test doubles for the ai interfaces.
//
// The default behavior is deterministic: the same input text always yields
// the same unit vector, so similarity-dependent tests are repeatable without
// a live embedding service.
package mock
