package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Asset is an item worth protecting: an ECU, a bus, a data store, a person
// with key access, and so on.
type Asset struct {
	CreatedAt   time.Time          `json:"created_at"`
	ID          string             `json:"id"`
	AnalysisID  string             `json:"analysis_id"`
	Name        string             `json:"name"`
	Type        AssetType          `json:"type"`
	Description string             `json:"description,omitempty"`
	Criticality CriticalityLevel   `json:"criticality"`
	Interfaces  []string           `json:"interfaces,omitempty"`
	Properties  []SecurityProperty `json:"properties,omitempty"`
}

// GenerateAssetID creates a stable, deterministic ID for an asset so
// re-imports and recalculations reference the same record.
func GenerateAssetID(analysisID, name string, assetType AssetType) string {
	core := fmt.Sprintf("%s:%s:%s", analysisID, name, assetType)
	hash := sha256.Sum256([]byte(core))
	return hex.EncodeToString(hash[:8])
}

// NewAsset creates an asset with a generated ID.
func NewAsset(analysisID, name string, assetType AssetType) *Asset {
	return &Asset{
		ID:         GenerateAssetID(analysisID, name, assetType),
		AnalysisID: analysisID,
		Name:       name,
		Type:       assetType,
		CreatedAt:  time.Now(),
	}
}

// IsValid checks required fields and enum membership.
func (a *Asset) IsValid() error {
	if a.AnalysisID == "" {
		return fmt.Errorf("asset missing required field: analysis_id")
	}
	if a.Name == "" {
		return fmt.Errorf("asset missing required field: name")
	}
	if !IsValidAssetType(a.Type) {
		return fmt.Errorf("asset has unknown type: %s", a.Type)
	}
	if a.Criticality != "" && !IsValidCriticalityLevel(a.Criticality) {
		return fmt.Errorf("asset has unknown criticality: %s", a.Criticality)
	}
	for _, p := range a.Properties {
		if !IsValidSecurityProperty(p) {
			return fmt.Errorf("asset has unknown security property: %s", p)
		}
	}
	return nil
}

// HasInterface reports whether the asset exposes the named interface,
// compared case-insensitively.
func (a *Asset) HasInterface(name string) bool {
	for _, iface := range a.Interfaces {
		if strings.EqualFold(iface, name) {
			return true
		}
	}
	return false
}
