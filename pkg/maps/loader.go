package maps

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"sync"
)

//go:embed data/*.json
var presetFiles embed.FS

var (
	registryMu sync.RWMutex
	// Registry holds all loaded world presets by id.
	Registry = make(map[string]Config)
)

// LoadAll loads all embedded presets into the registry.
func LoadAll() error {
	entries, err := presetFiles.ReadDir("data")
	if err != nil {
		return fmt.Errorf("failed to read preset directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		data, err := presetFiles.ReadFile(path.Join("data", entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read preset %s: %w", entry.Name(), err)
		}

		cfg, err := LoadConfigJSON(data)
		if err != nil {
			return fmt.Errorf("failed to load preset %s: %w", entry.Name(), err)
		}

		Register(cfg)
	}

	return nil
}

// LoadConfigFile loads a world config from a JSON file on disk.
func LoadConfigFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read world config: %w", err)
	}
	return LoadConfigJSON(data)
}

// LoadConfigJSON parses and validates a world config. Missing fields take
// their values from DefaultConfig, except the id, which must be given.
func LoadConfigJSON(data []byte) (Config, error) {
	cfg := DefaultConfig()
	cfg.ID = ""
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse world config JSON: %w", err)
	}
	if cfg.ID == "" {
		return Config{}, fmt.Errorf("world config id is required")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid world config: %w", err)
	}
	return cfg, nil
}

// Register adds a preset to the registry.
func Register(cfg Config) {
	if cfg.ID == "" {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	Registry[cfg.ID] = cfg
}

// Get retrieves a preset by id.
func Get(id string) (Config, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	cfg, ok := Registry[id]
	return cfg, ok
}

// PresetInfo contains basic preset information for listing.
type PresetInfo struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Size     float64 `json:"size"`
	TileSize float64 `json:"tile_size"`
}

// List returns all presets sorted by id.
func List() []PresetInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	infos := make([]PresetInfo, 0, len(Registry))
	for _, cfg := range Registry {
		infos = append(infos, PresetInfo{
			ID:       cfg.ID,
			Name:     cfg.Name,
			Size:     cfg.Size,
			TileSize: cfg.TileSize,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
