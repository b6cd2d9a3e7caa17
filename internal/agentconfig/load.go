package agentconfig

import (
	"encoding/json"
	"fmt"

	"github.com/titanous/json5"

	"github.com/nextlevelbuilder/orgkernel/internal/fsio"
	"github.com/nextlevelbuilder/orgkernel/internal/pathresolver"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// Service loads, saves, and validates agent configuration documents,
// addressed through the path resolver.
type Service struct {
	paths *pathresolver.Resolver
}

func NewService(paths *pathresolver.Resolver) *Service {
	return &Service{paths: paths}
}

// LoadAgentConfig resolves the path, safe-loads it (recovering from a
// backup if corrupted), parses it tolerantly with json5, and validates it
// strictly against the schema (§4.4).
func (s *Service) LoadAgentConfig(agentID string) (*Config, error) {
	path := s.paths.ConfigPath(agentID)

	data, err := fsio.SafeLoad(path, validateJSON)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, store.WrapError(store.KindInvalidJSON, agentID, err)
	}

	if _, errs := Validate(&cfg, true); len(errs) > 0 {
		return nil, store.NewError(store.KindSchemaInvalid, agentID, "invalid agent config: %s", errs[0])
	}

	return &cfg, nil
}

// SaveAgentConfig validates strictly, best-effort backs up the existing
// file, then atomically writes a pretty-printed serialization (§4.4).
func (s *Service) SaveAgentConfig(agentID string, cfg *Config) error {
	if _, errs := Validate(cfg, true); len(errs) > 0 {
		return store.NewError(store.KindSchemaInvalid, agentID, "invalid agent config: %s", errs[0])
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return store.WrapError(store.KindWriteFailed, agentID, err)
	}

	path := s.paths.ConfigPath(agentID)
	fsio.CreateBackup(path)

	return fsio.AtomicWrite(path, data, 0644)
}

func validateJSON(content []byte) error {
	var v any
	if err := json5.Unmarshal(content, &v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
