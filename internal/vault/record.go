package vault

import (
	"encoding/json"
	"fmt"
	"strings"

	"shield-go/internal/model"
)

// encodeRecord serialises an asset record. Every backend stores the same JSON
// document so records can be copied between vault types.
func encodeRecord(asset *model.ProtectedAsset) ([]byte, error) {
	data, err := json.Marshal(asset)
	if err != nil {
		return nil, fmt.Errorf("encoding record %s: %w", asset.ID, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*model.ProtectedAsset, error) {
	var asset model.ProtectedAsset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &asset, nil
}

// validKey rejects ids and refs that could escape the backend's namespace.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid vault key: %q", key)
	}
	return nil
}
