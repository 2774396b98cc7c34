package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/papyr-dev/papyr-store/internal/logger"
	"github.com/papyr-dev/papyr-store/pkg/schema"
)

// LoadSeed reads one JSON file per collection from dir. Each file holds an
// object mapping record ID to record; the file name (minus .json) is the
// collection name. Data is loaded once at startup and never written back.
// A missing directory yields an empty seed.
func LoadSeed(dir string, log *logger.Logger) (map[string]map[string]schema.Record, error) {
	seed := make(map[string]map[string]schema.Record)

	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return seed, nil
	}
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		collection := strings.TrimSuffix(file.Name(), ".json")

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			log.Warn("could not read seed file", "file", file.Name(), "error", err)
			continue
		}

		var records map[string]schema.Record
		if err := json.Unmarshal(content, &records); err != nil {
			log.Warn("could not parse seed file", "file", file.Name(), "error", err)
			continue
		}
		seed[collection] = records
	}
	return seed, nil
}
