package importer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/avelkin/linkvault/internal/model"
)

// ParseExport decodes the legacy export payload. Unknown fields are ignored;
// only a payload that cannot be decoded at all is an error (systemic, the
// pipeline never starts processing).
func ParseExport(data []byte) (*model.LegacyExport, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("export payload is empty")
	}
	var export model.LegacyExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("decode export payload: %w", err)
	}
	return &export, nil
}
