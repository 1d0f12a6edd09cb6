package model

// TrustLayerERC8004 marks agents registered through the on-chain identity
// registry; the dashboard's "verified" filter keys off it.
const TrustLayerERC8004 = "ERC-8004"

// Agent is one record from the backend's agent registry.
type Agent struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Owner           string   `json:"owner"`
	Reputation      int      `json:"reputation"`
	Tags            []string `json:"tags"`
	RegistrationURL string   `json:"registrationUrl"`
	VerifiableProof string   `json:"verifiableProof,omitempty"`
	Chain           string   `json:"chain"`
	TrustLayer      string   `json:"trustLayer"`
}
