package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pitlane/gt2garage/internal/pipeline"
)

// carNameEntry mirrors one record of the community CarNames.json file.
type carNameEntry struct {
	CarID          string `json:"CarId"`
	NameFirstPart  string `json:"NameFirstPart"`
	NameSecondPart string `json:"NameSecondPart"`
}

// LoadCarNames reads CarNames.json and returns the cars in file order.
// IDs are lowercased; the header-like row whose CarId is literally "carid"
// is skipped, as are rows with no ID at all.
func LoadCarNames(path string) ([]pipeline.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var entries []carNameEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}

	cars := make([]pipeline.Entity, 0, len(entries))
	for _, entry := range entries {
		id := strings.ToLower(strings.TrimSpace(entry.CarID))
		if id == "" || id == "carid" {
			continue
		}
		name := strings.TrimSpace(entry.NameFirstPart + " " + entry.NameSecondPart)
		cars = append(cars, pipeline.Entity{ID: id, Name: name})
	}
	return cars, nil
}
