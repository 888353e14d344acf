package types

import (
	"encoding/json"
	"fmt"
)

// EntryInfo is a listing row for one archive entry
type EntryInfo struct {
	Path Path           `json:"path"`
	Type PackedFileType `json:"type"`
	Size int64          `json:"size"`
}

// ToJSON converts EntryInfo to a JSON string
func (e EntryInfo) ToJSON() string {
	jsonBytes, _ := json.Marshal(struct {
		Path string         `json:"path"`
		Type PackedFileType `json:"type"`
		Size int64          `json:"size"`
	}{e.Path.String(), e.Type, e.Size})
	return string(jsonBytes)
}

// String returns a human-readable representation
func (e EntryInfo) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", e.Path, e.Type, e.Size)
}
