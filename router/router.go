package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devskyy/runway/internal/metrics"
	"github.com/devskyy/runway/types"
)

// Confidence thresholds and scores of the strategy chain.
const (
	exactMatchConfidence = 0.95
	exactMatchThreshold  = 0.80
	fuzzyMatchThreshold  = 0.60
	fuzzyCandidateFloor  = 0.30
	fallbackConfidence   = 0.30
)

// taskAgentTypes maps each task type to the agent types that can serve
// it, in preference order. The table is static: routing never guesses a
// serving type.
var taskAgentTypes = map[TaskType][]string{
	TaskCodeGeneration:        {"code_generator", "ai_coder", "development"},
	TaskCodeReview:            {"code_reviewer", "quality_assurance", "development"},
	TaskCodeRefactoring:       {"refactoring_agent", "code_optimizer", "development"},
	TaskCodeTesting:           {"test_runner", "qa_agent", "development"},
	TaskCodeDebugging:         {"debugger", "error_analyzer", "development"},
	TaskContentGeneration:     {"content_writer", "copywriter", "marketing"},
	TaskImageProcessing:       {"image_processor", "computer_vision", "media"},
	TaskVideoProcessing:       {"video_processor", "media_encoder", "media"},
	TaskAudioProcessing:       {"audio_processor", "speech_recognition", "media"},
	TaskDataAnalysis:          {"data_analyst", "analytics_engine", "data"},
	TaskDataProcessing:        {"data_processor", "etl_engine", "data"},
	TaskMLTraining:            {"ml_trainer", "model_builder", "ml"},
	TaskMLInference:           {"ml_inference", "prediction_engine", "ml"},
	TaskFinancialAnalysis:     {"financial_analyst", "finance_agent", "finance"},
	TaskInventoryManagement:   {"inventory_manager", "stock_optimizer", "inventory"},
	TaskCustomerService:       {"customer_service", "support_agent", "customer"},
	TaskMarketingAutomation:   {"marketing_agent", "campaign_manager", "marketing"},
	TaskDatabaseOptimization:  {"database_optimizer", "query_optimizer", "database"},
	TaskSecurityScan:          {"security_scanner", "vulnerability_scanner", "security"},
	TaskPerformanceMonitoring: {"performance_monitor", "observability", "monitoring"},
	TaskDeployment:            {"deployment_agent", "devops", "infrastructure"},
	TaskWordPressTheme:        {"wordpress_theme_builder", "theme_developer", "wordpress"},
	TaskWordPressPlugin:       {"wordpress_plugin_developer", "wp_developer", "wordpress"},
	TaskCMSContent:            {"cms_manager", "content_manager", "cms"},
	TaskProductManagement:     {"product_manager", "catalog_manager", "ecommerce"},
	TaskOrderProcessing:       {"order_processor", "fulfillment_agent", "ecommerce"},
	TaskPricingOptimization:   {"pricing_engine", "price_optimizer", "ecommerce"},
}

// taskKeywords drives fuzzy matching of free-text descriptions. The
// first keyword of each set doubles as the similarity anchor.
var taskKeywords = map[TaskType][]string{
	TaskCodeGeneration:      {"code", "generate", "create", "build", "develop", "implement"},
	TaskCodeReview:          {"review", "check", "audit", "inspect", "validate"},
	TaskCodeRefactoring:     {"refactor", "improve", "optimize", "restructure", "clean"},
	TaskCodeTesting:         {"test", "verify", "validate", "check", "qa"},
	TaskCodeDebugging:       {"debug", "fix", "error", "bug", "issue"},
	TaskContentGeneration:   {"write", "content", "article", "blog", "copy"},
	TaskImageProcessing:     {"image", "photo", "picture", "visual", "graphics"},
	TaskVideoProcessing:     {"video", "movie", "clip", "footage"},
	TaskAudioProcessing:     {"audio", "sound", "voice", "speech", "music"},
	TaskFinancialAnalysis:   {"finance", "financial", "accounting", "revenue", "profit"},
	TaskInventoryManagement: {"inventory", "stock", "warehouse", "products"},
	TaskCustomerService:     {"customer", "support", "help", "service", "assistance"},
	TaskSecurityScan:        {"security", "vulnerability", "scan", "threat", "penetration"},
	TaskDeployment:          {"deploy", "release", "publish", "production"},
	TaskWordPressTheme:      {"wordpress", "theme", "wp", "template"},
	TaskProductManagement:   {"product", "catalog", "sku", "merchandise"},
}

// Router routes task requests to agents through a cache -> exact ->
// fuzzy -> fallback strategy chain.
type Router struct {
	store     ConfigStore
	cache     Cache
	logger    *zap.Logger
	collector *metrics.Collector
}

// RouterOption customizes router construction.
type RouterOption func(*Router)

// WithCache replaces the default in-memory routing cache.
func WithCache(cache Cache) RouterOption {
	return func(r *Router) { r.cache = cache }
}

// WithRouterLogger sets the router logger.
func WithRouterLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// WithRouterCollector wires a Prometheus metrics collector.
func WithRouterCollector(c *metrics.Collector) RouterOption {
	return func(r *Router) { r.collector = c }
}

// New creates a router over the given agent store.
func New(store ConfigStore, opts ...RouterOption) *Router {
	r := &Router{
		store:  store,
		cache:  NewMemoryCache(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "router"))
	return r
}

func cacheKey(req *TaskRequest) string {
	return fmt.Sprintf("%s:%d", req.Type, req.Priority)
}

// Route resolves a request to an agent. It returns a NO_AGENT_FOUND
// error when every strategy in the chain comes up empty.
func (r *Router) Route(ctx context.Context, req *TaskRequest) (*RoutingResult, error) {
	if req == nil {
		return nil, types.NewError(types.ErrTaskValidation, "task request cannot be nil")
	}
	start := time.Now()

	key := cacheKey(req)
	if cached, ok := r.cache.Get(ctx, key); ok {
		r.collector.RecordCacheHit("routing")
		r.collector.RecordRouting(MethodCached, time.Since(start))
		return &RoutingResult{
			AgentID:    cached.AgentID,
			AgentName:  cached.AgentName,
			TaskType:   req.Type,
			Confidence: cached.Confidence,
			Method:     MethodCached,
			Metadata:   map[string]any{"cache_hit": true},
			Timestamp:  time.Now(),
		}, nil
	}
	r.collector.RecordCacheMiss("routing")

	if result := r.exactMatch(req); result != nil && result.Confidence >= exactMatchThreshold {
		r.cache.Set(ctx, key, result)
		r.collector.RecordRouting(result.Method, time.Since(start))
		r.logger.Debug("routed task",
			zap.String("task_type", string(req.Type)),
			zap.String("agent_id", result.AgentID),
			zap.String("method", result.Method),
		)
		return result, nil
	}

	if result := r.fuzzyMatch(req); result != nil && result.Confidence >= fuzzyMatchThreshold {
		r.cache.Set(ctx, key, result)
		r.collector.RecordRouting(result.Method, time.Since(start))
		r.logger.Debug("routed task",
			zap.String("task_type", string(req.Type)),
			zap.String("agent_id", result.AgentID),
			zap.String("method", result.Method),
			zap.Float64("confidence", result.Confidence),
		)
		return result, nil
	}

	if result := r.fallback(req); result != nil {
		r.collector.RecordRouting(result.Method, time.Since(start))
		r.logger.Info("task fell back to general agent",
			zap.String("task_type", string(req.Type)),
			zap.String("agent_id", result.AgentID),
		)
		return result, nil
	}

	r.collector.RecordRouting(MethodFailed, time.Since(start))
	return nil, types.Errorf(types.ErrNoAgentFound,
		"no agent found for task type: %s. Description: %s", req.Type, req.Description)
}

// RouteBatch routes requests in order. A request no strategy can serve
// yields a zero-confidence "failed" placeholder instead of failing the
// batch; a store failure fails the whole batch up front.
func (r *Router) RouteBatch(ctx context.Context, reqs []*TaskRequest) ([]*RoutingResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	for i, req := range reqs {
		if req == nil {
			return nil, types.Errorf(types.ErrTaskValidation, "task request at index %d is nil", i)
		}
	}

	// Warm the store once so per-item routing hits memory.
	if _, err := r.store.GetEnabledAgents(); err != nil {
		return nil, types.Errorf(types.ErrRouting, "failed to load agent configs: %v", err)
	}

	results := make([]*RoutingResult, 0, len(reqs))
	for i, req := range reqs {
		result, err := r.Route(ctx, req)
		if err != nil {
			if !types.IsCode(err, types.ErrNoAgentFound) {
				return nil, err
			}
			r.logger.Warn("batch item unroutable",
				zap.Int("index", i),
				zap.String("task_type", string(req.Type)),
				zap.Error(err),
			)
			result = &RoutingResult{
				AgentID:    "unknown",
				AgentName:  "Unknown Agent",
				TaskType:   req.Type,
				Confidence: 0,
				Method:     MethodFailed,
				Metadata:   map[string]any{"error": err.Error()},
				Timestamp:  time.Now(),
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// exactMatch routes by the static task-type table. It returns nil when
// the type is unmapped, the store fails, or no enabled agent matches.
func (r *Router) exactMatch(req *TaskRequest) *RoutingResult {
	agentTypes, ok := taskAgentTypes[req.Type]
	if !ok {
		return nil
	}

	agents, err := r.store.GetEnabledAgents()
	if err != nil {
		r.logger.Warn("agent store unavailable", zap.Error(err))
		return nil
	}

	var candidates []AgentConfig
	for _, agent := range agents {
		for _, at := range agentTypes {
			if agent.AgentType == at {
				candidates = append(candidates, agent)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	best := selectBestAgent(candidates, req)
	return &RoutingResult{
		AgentID:    best.AgentID,
		AgentName:  best.AgentName,
		TaskType:   req.Type,
		Confidence: exactMatchConfidence,
		Method:     MethodExact,
		Metadata:   map[string]any{"matched_types": agentTypes},
		Timestamp:  time.Now(),
	}
}

// fuzzyMatch infers a task type from the description and re-routes
// through the exact table under the inferred type, keeping the fuzzy
// confidence.
func (r *Router) fuzzyMatch(req *TaskRequest) *RoutingResult {
	description := strings.ToLower(req.Description)

	var bestType TaskType
	bestScore := -1.0
	for taskType, keywords := range taskKeywords {
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(description, kw) {
				matches++
			}
		}
		keywordScore := float64(matches) / float64(len(keywords))
		score := keywordScore*0.7 + similarity(description, keywords[0])*0.3
		if score > bestScore {
			bestScore = score
			bestType = taskType
		}
	}
	if bestScore < fuzzyCandidateFloor {
		return nil
	}

	inferred := &TaskRequest{
		Type:        bestType,
		Description: req.Description,
		Priority:    req.Priority,
		Parameters:  req.Parameters,
	}
	result := r.exactMatch(inferred)
	if result == nil {
		return nil
	}
	result.Confidence = bestScore
	result.Method = MethodFuzzy
	result.Metadata["fuzzy_score"] = bestScore
	return result
}

// fallback routes to the first enabled general-purpose agent.
func (r *Router) fallback(req *TaskRequest) *RoutingResult {
	generals, err := r.store.GetAgentsByType(string(TaskGeneral))
	if err != nil {
		r.logger.Warn("agent store unavailable", zap.Error(err))
		return nil
	}
	if len(generals) == 0 {
		return nil
	}
	agent := generals[0]
	return &RoutingResult{
		AgentID:    agent.AgentID,
		AgentName:  agent.AgentName,
		TaskType:   req.Type,
		Confidence: fallbackConfidence,
		Method:     MethodFallback,
		Metadata:   map[string]any{"fallback": true},
		Timestamp:  time.Now(),
	}
}

// selectBestAgent picks the highest-scoring candidate; earlier
// candidates win ties.
func selectBestAgent(agents []AgentConfig, req *TaskRequest) AgentConfig {
	best := agents[0]
	bestScore := agentScore(best, req)
	for _, agent := range agents[1:] {
		if score := agentScore(agent, req); score > bestScore {
			best = agent
			bestScore = score
		}
	}
	return best
}

// agentScore rates a candidate in [0, 1]: 40% priority alignment, 40%
// mean capability confidence (0.2 when none declared), 20% headroom from
// max concurrent tasks.
func agentScore(agent AgentConfig, req *TaskRequest) float64 {
	priorityDiff := agent.Priority - req.Priority
	if priorityDiff < 0 {
		priorityDiff = -priorityDiff
	}
	score := (1.0 - float64(priorityDiff)/100.0) * 0.4

	if len(agent.Capabilities) > 0 {
		sum := 0.0
		for _, c := range agent.Capabilities {
			sum += c.Confidence
		}
		score += (sum / float64(len(agent.Capabilities))) * 0.4
	} else {
		score += 0.2
	}

	availability := float64(agent.MaxConcurrentTasks) / 100.0
	if availability > 1.0 {
		availability = 1.0
	}
	score += availability * 0.2

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Stats reports cache occupancy and table sizes.
func (r *Router) Stats(ctx context.Context) map[string]any {
	return map[string]any{
		"cache_size":           r.cache.Len(ctx),
		"cached_routes":        r.cache.Keys(ctx),
		"supported_task_types": len(taskTypes),
		"task_type_mappings":   len(taskAgentTypes),
	}
}

// ClearCache drops the routing cache and the agent store's config cache.
func (r *Router) ClearCache(ctx context.Context) {
	r.cache.Clear(ctx)
	r.store.ClearCache()
}
