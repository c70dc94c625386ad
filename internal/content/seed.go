package content

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/bilgisen/wpsync/internal/models"
)

//go:embed seed/*.json
var seedFS embed.FS

// DefaultNewsSeed returns the demo news shipped with the binary.
func DefaultNewsSeed() ([]models.NewsItem, error) {
	var items []models.NewsItem
	if err := readSeed("seed/news.json", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// DefaultEventSeed returns the demo events shipped with the binary.
func DefaultEventSeed() ([]models.EventItem, error) {
	var items []models.EventItem
	if err := readSeed("seed/events.json", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func readSeed(name string, dst any) error {
	raw, err := seedFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read seed %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode seed %s: %w", name, err)
	}
	return nil
}
