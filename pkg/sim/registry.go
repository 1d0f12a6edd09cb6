package sim

import (
	"net/http"

	"command-center/pkg/model"
)

// SeedAgents is the registry served by the simulator.
func SeedAgents() []model.Agent {
	return []model.Agent{
		{
			ID: "agent-researcher", Name: "Researcher", Owner: "orchestrator-labs",
			Description: "Gathers and condenses sources for a prompt",
			Reputation:  92, Tags: []string{"research", "web"},
			RegistrationURL: "https://registry.local/agents/agent-researcher",
			Chain:           "solana", TrustLayer: model.TrustLayerERC8004,
			VerifiableProof: "0x9d1e2f",
		},
		{
			ID: "agent-coder", Name: "Coder", Owner: "orchestrator-labs",
			Description: "Writes and reviews code for task steps",
			Reputation:  88, Tags: []string{"code"},
			RegistrationURL: "https://registry.local/agents/agent-coder",
			Chain:           "solana", TrustLayer: model.TrustLayerERC8004,
			VerifiableProof: "0x41b7aa",
		},
		{
			ID: "agent-analyst", Name: "Data Analyst", Owner: "quantwerk",
			Description: "Aggregates and charts structured data",
			Reputation:  81, Tags: []string{"data", "charts"},
			RegistrationURL: "https://registry.local/agents/agent-analyst",
			Chain:           "solana", TrustLayer: "none",
		},
		{
			ID: "agent-writer", Name: "Writer", Owner: "prosaic",
			Description: "Drafts long-form copy from specialist output",
			Reputation:  74, Tags: []string{"writing"},
			RegistrationURL: "https://registry.local/agents/agent-writer",
			Chain:           "solana", TrustLayer: "none",
		},
		{
			ID: "agent-auditor", Name: "Auditor", Owner: "ledgerline",
			Description: "Verifies payment settlement across task runs",
			Reputation:  67, Tags: []string{"payments", "audit"},
			RegistrationURL: "https://registry.local/agents/agent-auditor",
			Chain:           "solana", TrustLayer: model.TrustLayerERC8004,
			VerifiableProof: "0xc3f019",
		},
	}
}

// RegisterAgentRoutes exposes the agent registry.
func RegisterAgentRoutes(mux *http.ServeMux, agents []model.Agent) {
	mux.HandleFunc("/api/agents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, agents)
	})
}
