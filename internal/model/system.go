package model

// HealthInfo is the liveness payload of the service.
type HealthInfo struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Version string `json:"version"`
	Store   string `json:"store"`
	Error   string `json:"error,omitempty"`
}
