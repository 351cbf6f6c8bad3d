package models

// ModelInfo is one entry of a generative provider's model catalog
type ModelInfo struct {
	ID                 string
	DisplayName        string
	SupportsGeneration bool
}
