package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devskyy/runway/types"
)

// failingStore simulates an unavailable agent config backend.
type failingStore struct{}

func (failingStore) GetEnabledAgents() ([]AgentConfig, error) {
	return nil, errors.New("backend down")
}

func (failingStore) GetAgentsByType(string) ([]AgentConfig, error) {
	return nil, errors.New("backend down")
}

func (failingStore) ClearCache() {}

func testStore() *StaticStore {
	return &StaticStore{Agents: []AgentConfig{
		{
			AgentID: "writer-1", AgentName: "Copywriter", AgentType: "content_writer",
			Priority: 50, MaxConcurrentTasks: 10, Enabled: true,
			Capabilities: []Capability{{Name: "write_copy", Confidence: 0.9}},
		},
		{
			AgentID: "writer-2", AgentName: "Junior Copywriter", AgentType: "content_writer",
			Priority: 95, MaxConcurrentTasks: 2, Enabled: true,
			Capabilities: []Capability{{Name: "write_copy", Confidence: 0.4}},
		},
		{
			AgentID: "video-1", AgentName: "Video Studio", AgentType: "video_processor",
			Priority: 50, MaxConcurrentTasks: 5, Enabled: true,
		},
		{
			AgentID: "generalist-1", AgentName: "Generalist", AgentType: "general",
			Priority: 50, MaxConcurrentTasks: 20, Enabled: true,
		},
	}}
}

func TestRoute_ExactMatchPicksBestAgent(t *testing.T) {
	router := New(testStore())
	req, err := NewTaskRequest(TaskContentGeneration, "write the spring lookbook copy", 50)
	require.NoError(t, err)

	result, err := router.Route(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "writer-1", result.AgentID, "aligned priority and stronger capabilities win")
	assert.Equal(t, MethodExact, result.Method)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
	assert.Equal(t, TaskContentGeneration, result.TaskType)
	assert.False(t, result.Timestamp.IsZero())
}

func TestRoute_SecondCallIsCached(t *testing.T) {
	router := New(testStore())
	req, err := NewTaskRequest(TaskContentGeneration, "write copy", 50)
	require.NoError(t, err)

	first, err := router.Route(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, MethodExact, first.Method)

	second, err := router.Route(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, MethodCached, second.Method)
	assert.Equal(t, first.AgentID, second.AgentID)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, true, second.Metadata["cache_hit"])
}

func TestRoute_CacheKeyIgnoresDescription(t *testing.T) {
	router := New(testStore())

	a, err := NewTaskRequest(TaskContentGeneration, "write a press release", 50)
	require.NoError(t, err)
	b, err := NewTaskRequest(TaskContentGeneration, "draft careers page", 50)
	require.NoError(t, err)

	_, err = router.Route(context.Background(), a)
	require.NoError(t, err)

	result, err := router.Route(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, MethodCached, result.Method, "same type and priority share one decision")
}

func TestRoute_FuzzyMatchFromDescription(t *testing.T) {
	router := New(testStore())

	// UNKNOWN has no entry in the exact table, so routing must infer the
	// type from the description's keywords.
	req, err := NewTaskRequest(TaskUnknown, "edit the runway video movie clip footage", 50)
	require.NoError(t, err)

	result, err := router.Route(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, MethodFuzzy, result.Method)
	assert.Equal(t, "video-1", result.AgentID)
	assert.GreaterOrEqual(t, result.Confidence, fuzzyMatchThreshold)
	assert.Contains(t, result.Metadata, "fuzzy_score")
	assert.Equal(t, TaskVideoProcessing, result.TaskType, "reported type is the inferred one")
}

func TestRoute_FallbackToGeneralAgent(t *testing.T) {
	router := New(testStore())

	req, err := NewTaskRequest(TaskUnknown, "zzz qqq", 50)
	require.NoError(t, err)

	result, err := router.Route(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, MethodFallback, result.Method)
	assert.Equal(t, "generalist-1", result.AgentID)
	assert.InDelta(t, fallbackConfidence, result.Confidence, 1e-9)
}

func TestRoute_NoAgentFound(t *testing.T) {
	router := New(&StaticStore{})

	req, err := NewTaskRequest(TaskUnknown, "zzz qqq", 50)
	require.NoError(t, err)

	_, err = router.Route(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, types.ErrNoAgentFound, types.GetErrorCode(err))
}

func TestRoute_StoreFailureFallsThrough(t *testing.T) {
	router := New(failingStore{})

	req, err := NewTaskRequest(TaskContentGeneration, "write copy", 50)
	require.NoError(t, err)

	_, err = router.Route(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, types.ErrNoAgentFound, types.GetErrorCode(err))
}

func TestRoute_NilRequest(t *testing.T) {
	router := New(testStore())

	_, err := router.Route(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrTaskValidation, types.GetErrorCode(err))
}

func TestRouteBatch_PreservesOrderAndDowngradesFailures(t *testing.T) {
	// No general agent, so unroutable requests cannot fall back.
	store := &StaticStore{Agents: []AgentConfig{
		{
			AgentID: "writer-1", AgentName: "Copywriter", AgentType: "content_writer",
			Priority: 50, MaxConcurrentTasks: 10, Enabled: true,
		},
	}}
	router := New(store)

	routable, err := NewTaskRequest(TaskContentGeneration, "write copy", 50)
	require.NoError(t, err)
	unroutable, err := NewTaskRequest(TaskUnknown, "zzz qqq", 50)
	require.NoError(t, err)

	results, err := router.RouteBatch(context.Background(), []*TaskRequest{routable, unroutable, routable})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "writer-1", results[0].AgentID)
	assert.Equal(t, "unknown", results[1].AgentID)
	assert.Equal(t, MethodFailed, results[1].Method)
	assert.Zero(t, results[1].Confidence)
	assert.Contains(t, results[1].Metadata, "error")
	assert.Equal(t, "writer-1", results[2].AgentID)
}

func TestRouteBatch_Empty(t *testing.T) {
	router := New(testStore())

	results, err := router.RouteBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRouteBatch_NilRequest(t *testing.T) {
	router := New(testStore())
	req, err := NewTaskRequest(TaskGeneral, "desc", 50)
	require.NoError(t, err)

	_, err = router.RouteBatch(context.Background(), []*TaskRequest{req, nil})
	require.Error(t, err)
	assert.Equal(t, types.ErrTaskValidation, types.GetErrorCode(err))
}

func TestRouteBatch_StoreFailure(t *testing.T) {
	router := New(failingStore{})
	req, err := NewTaskRequest(TaskGeneral, "desc", 50)
	require.NoError(t, err)

	_, err = router.RouteBatch(context.Background(), []*TaskRequest{req})
	require.Error(t, err)
	assert.Equal(t, types.ErrRouting, types.GetErrorCode(err))
}

func TestAgentScore(t *testing.T) {
	req := &TaskRequest{Type: TaskContentGeneration, Description: "d", Priority: 50}

	aligned := AgentConfig{Priority: 50, MaxConcurrentTasks: 100,
		Capabilities: []Capability{{Confidence: 1.0}}}
	assert.InDelta(t, 1.0, agentScore(aligned, req), 1e-9)

	noCapabilities := AgentConfig{Priority: 50, MaxConcurrentTasks: 0}
	// 0.4 priority + 0.2 default capability + 0 availability
	assert.InDelta(t, 0.6, agentScore(noCapabilities, req), 1e-9)

	misaligned := AgentConfig{Priority: 100, MaxConcurrentTasks: 50,
		Capabilities: []Capability{{Confidence: 0.5}}}
	// 0.4*(1-0.5) + 0.4*0.5 + 0.2*0.5
	assert.InDelta(t, 0.5, agentScore(misaligned, req), 1e-9)
}

func TestStatsAndClearCache(t *testing.T) {
	ctx := context.Background()
	router := New(testStore())

	req, err := NewTaskRequest(TaskContentGeneration, "write copy", 50)
	require.NoError(t, err)
	_, err = router.Route(ctx, req)
	require.NoError(t, err)

	stats := router.Stats(ctx)
	assert.Equal(t, 1, stats["cache_size"])
	assert.Equal(t, []string{"content_generation:50"}, stats["cached_routes"])
	assert.Equal(t, len(taskTypes), stats["supported_task_types"])
	assert.Equal(t, len(taskAgentTypes), stats["task_type_mappings"])

	router.ClearCache(ctx)
	assert.Equal(t, 0, router.Stats(ctx)["cache_size"])
}
