package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devskyy/runway/types"
)

const agentsYAML = `agents:
  - agent_id: designer-1
    agent_name: Design Agent
    agent_type: content_writer
    priority: 50
    max_concurrent_tasks: 10
    enabled: true
    capabilities:
      - name: write_copy
        confidence: 0.9
        keywords: [copy, write]
  - agent_id: helper-1
    agent_name: General Helper
    agent_type: general
    priority: 50
    max_concurrent_tasks: 5
    enabled: true
  - agent_id: retired-1
    agent_name: Retired Agent
    agent_type: content_writer
    priority: 10
    max_concurrent_tasks: 1
    enabled: false
`

func writeAgentsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileStore_GetEnabledAgents(t *testing.T) {
	store := NewFileStore(writeAgentsFile(t, agentsYAML), zap.NewNop())

	agents, err := store.GetEnabledAgents()
	require.NoError(t, err)
	require.Len(t, agents, 2, "disabled agents are filtered out")
	assert.Equal(t, "designer-1", agents[0].AgentID)
	require.Len(t, agents[0].Capabilities, 1)
	assert.InDelta(t, 0.9, agents[0].Capabilities[0].Confidence, 1e-9)
}

func TestFileStore_GetAgentsByType(t *testing.T) {
	store := NewFileStore(writeAgentsFile(t, agentsYAML), zap.NewNop())

	generals, err := store.GetAgentsByType("general")
	require.NoError(t, err)
	require.Len(t, generals, 1)
	assert.Equal(t, "helper-1", generals[0].AgentID)

	writers, err := store.GetAgentsByType("content_writer")
	require.NoError(t, err)
	assert.Len(t, writers, 1, "disabled writer excluded")
}

func TestFileStore_MissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop())

	_, err := store.GetEnabledAgents()
	require.Error(t, err)
	assert.Equal(t, types.ErrLoader, types.GetErrorCode(err))
}

func TestFileStore_MalformedYAML(t *testing.T) {
	store := NewFileStore(writeAgentsFile(t, "agents: [not: {closed"), zap.NewNop())

	_, err := store.GetEnabledAgents()
	require.Error(t, err)
	assert.Equal(t, types.ErrLoader, types.GetErrorCode(err))
}

func TestFileStore_MissingAgentID(t *testing.T) {
	store := NewFileStore(writeAgentsFile(t, `agents:
  - agent_name: Nameless
    agent_type: general
    enabled: true
  - agent_id: ok
    agent_type: general
    enabled: true
`), zap.NewNop())

	_, err := store.GetEnabledAgents()
	require.Error(t, err)
	assert.Equal(t, types.ErrLoader, types.GetErrorCode(err))
}

func TestFileStore_ClearCacheReloads(t *testing.T) {
	path := writeAgentsFile(t, agentsYAML)
	store := NewFileStore(path, zap.NewNop())

	agents, err := store.GetEnabledAgents()
	require.NoError(t, err)
	require.Len(t, agents, 2)

	// Rewrite the file; the cached copy still serves until ClearCache.
	require.NoError(t, os.WriteFile(path, []byte("agents: []\n"), 0o600))

	agents, err = store.GetEnabledAgents()
	require.NoError(t, err)
	assert.Len(t, agents, 2)

	store.ClearCache()
	agents, err = store.GetEnabledAgents()
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestStaticStore(t *testing.T) {
	store := &StaticStore{Agents: []AgentConfig{
		{AgentID: "a", AgentType: "general", Enabled: true},
		{AgentID: "b", AgentType: "general", Enabled: false},
		{AgentID: "c", AgentType: "data_analyst", Enabled: true},
	}}

	enabled, err := store.GetEnabledAgents()
	require.NoError(t, err)
	assert.Len(t, enabled, 2)

	generals, err := store.GetAgentsByType("general")
	require.NoError(t, err)
	require.Len(t, generals, 1)
	assert.Equal(t, "a", generals[0].AgentID)
}
