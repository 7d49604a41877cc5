package search

import "github.com/poiesic/recall/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(vector []float32)
	AfterNearestSearch(matches []*core.NearestMatch)
	Finish(results []*core.ConversationResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                           {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)          {}
func (n *noopMonitor) AfterNearestSearch(_ []*core.NearestMatch) {}
func (n *noopMonitor) Finish(_ []*core.ConversationResult)      {}
