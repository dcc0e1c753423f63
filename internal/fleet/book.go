package fleet

import (
	"sync"

	"github.com/papaburgs/vigilant-umbrella/internal/types"
)

// AgentBook holds the last-known agent state shared by every ship actor.
// Trade responses carry fresh credit balances, so whoever traded last
// updates the book for everyone.
type AgentBook struct {
	mu    sync.Mutex
	agent types.Agent
}

func NewAgentBook(agent types.Agent) *AgentBook {
	return &AgentBook{agent: agent}
}

func (b *AgentBook) Get() types.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.agent
}

func (b *AgentBook) Set(agent types.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agent = agent
}

// Update merges a partial agent payload from a transaction response. Only a
// non-zero symbol is trusted; credits always are.
func (b *AgentBook) Update(agent types.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if agent.Symbol != "" {
		b.agent.Symbol = agent.Symbol
	}
	b.agent.Credits = agent.Credits
}
