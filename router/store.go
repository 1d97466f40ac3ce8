package router

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/devskyy/runway/types"
)

// Capability is one operation an agent advertises, with the confidence
// its operator assigns to it.
type Capability struct {
	Name       string   `yaml:"name" json:"name"`
	Confidence float64  `yaml:"confidence" json:"confidence"`
	Keywords   []string `yaml:"keywords" json:"keywords,omitempty"`
}

// AgentConfig describes a routable agent.
type AgentConfig struct {
	AgentID            string       `yaml:"agent_id" json:"agent_id"`
	AgentName          string       `yaml:"agent_name" json:"agent_name"`
	AgentType          string       `yaml:"agent_type" json:"agent_type"`
	Priority           int          `yaml:"priority" json:"priority"`
	MaxConcurrentTasks int          `yaml:"max_concurrent_tasks" json:"max_concurrent_tasks"`
	Capabilities       []Capability `yaml:"capabilities" json:"capabilities,omitempty"`
	Enabled            bool         `yaml:"enabled" json:"enabled"`
}

// ConfigStore supplies agent definitions to the router. A store failure
// is a LOADER_ERROR; routing strategies treat it as no match and move on
// down the chain.
type ConfigStore interface {
	// GetEnabledAgents returns every enabled agent.
	GetEnabledAgents() ([]AgentConfig, error)
	// GetAgentsByType returns enabled agents of the given type.
	GetAgentsByType(agentType string) ([]AgentConfig, error)
	// ClearCache drops any cached configs so the next read reloads.
	ClearCache()
}

// StaticStore is a ConfigStore over a fixed in-memory agent list, mainly
// for tests and embedded setups.
type StaticStore struct {
	Agents []AgentConfig
}

func (s *StaticStore) GetEnabledAgents() ([]AgentConfig, error) {
	var out []AgentConfig
	for _, a := range s.Agents {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *StaticStore) GetAgentsByType(agentType string) ([]AgentConfig, error) {
	var out []AgentConfig
	for _, a := range s.Agents {
		if a.Enabled && a.AgentType == agentType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *StaticStore) ClearCache() {}

// agentsFile is the YAML document shape for FileStore.
type agentsFile struct {
	Agents []AgentConfig `yaml:"agents"`
}

// FileStore loads agent definitions from a YAML file, parsing it once
// and serving subsequent reads from memory until ClearCache.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu     sync.RWMutex
	agents []AgentConfig
	loaded bool
}

// NewFileStore creates a store over the given YAML file. The file is not
// read until the first query.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With(zap.String("component", "agent_store")),
	}
}

func (s *FileStore) load() ([]AgentConfig, error) {
	s.mu.RLock()
	if s.loaded {
		agents := s.agents
		s.mu.RUnlock()
		return agents, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.agents, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, types.Errorf(types.ErrLoader, "read agent config %s: %v", s.path, err)
	}
	var doc agentsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.Errorf(types.ErrLoader, "parse agent config %s: %v", s.path, err)
	}
	for i, a := range doc.Agents {
		if a.AgentID == "" || a.AgentType == "" {
			return nil, types.Errorf(types.ErrLoader,
				"agent config %s: entry %d missing agent_id or agent_type", s.path, i)
		}
	}

	s.agents = doc.Agents
	s.loaded = true
	s.logger.Info("agent configs loaded",
		zap.String("path", s.path),
		zap.Int("agents", len(s.agents)),
	)
	return s.agents, nil
}

func (s *FileStore) GetEnabledAgents() ([]AgentConfig, error) {
	agents, err := s.load()
	if err != nil {
		return nil, err
	}
	var out []AgentConfig
	for _, a := range agents {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *FileStore) GetAgentsByType(agentType string) ([]AgentConfig, error) {
	agents, err := s.GetEnabledAgents()
	if err != nil {
		return nil, err
	}
	var out []AgentConfig
	for _, a := range agents {
		if a.AgentType == agentType {
			out = append(out, a)
		}
	}
	return out, nil
}

// ClearCache forces a reload from disk on the next query.
func (s *FileStore) ClearCache() {
	s.mu.Lock()
	s.loaded = false
	s.agents = nil
	s.mu.Unlock()
}
