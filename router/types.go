package router

import (
	"strings"
	"time"

	"github.com/devskyy/runway/types"
)

// TaskType classifies a task request for routing purposes.
type TaskType string

const (
	// Code and development
	TaskCodeGeneration  TaskType = "code_generation"
	TaskCodeReview      TaskType = "code_review"
	TaskCodeRefactoring TaskType = "refactoring"
	TaskCodeTesting     TaskType = "testing"
	TaskCodeDebugging   TaskType = "debugging"

	// Content and media
	TaskContentGeneration TaskType = "content_generation"
	TaskImageProcessing   TaskType = "image_processing"
	TaskVideoProcessing   TaskType = "video_processing"
	TaskAudioProcessing   TaskType = "audio_processing"

	// Data and analytics
	TaskDataAnalysis   TaskType = "data_analysis"
	TaskDataProcessing TaskType = "data_processing"
	TaskMLTraining     TaskType = "ml_training"
	TaskMLInference    TaskType = "ml_inference"

	// Business and operations
	TaskFinancialAnalysis   TaskType = "financial_analysis"
	TaskInventoryManagement TaskType = "inventory_management"
	TaskCustomerService     TaskType = "customer_service"
	TaskMarketingAutomation TaskType = "marketing_automation"

	// Infrastructure
	TaskDatabaseOptimization  TaskType = "database_optimization"
	TaskSecurityScan          TaskType = "security_scan"
	TaskPerformanceMonitoring TaskType = "performance_monitoring"
	TaskDeployment            TaskType = "deployment"

	// WordPress and CMS
	TaskWordPressTheme  TaskType = "wordpress_theme"
	TaskWordPressPlugin TaskType = "wordpress_plugin"
	TaskCMSContent      TaskType = "cms_content"

	// E-commerce
	TaskProductManagement   TaskType = "product_management"
	TaskOrderProcessing     TaskType = "order_processing"
	TaskPricingOptimization TaskType = "pricing_optimization"

	// Generic
	TaskGeneral TaskType = "general"
	TaskUnknown TaskType = "unknown"
)

// taskTypes is the closed set of valid task types.
var taskTypes = map[TaskType]struct{}{
	TaskCodeGeneration: {}, TaskCodeReview: {}, TaskCodeRefactoring: {},
	TaskCodeTesting: {}, TaskCodeDebugging: {},
	TaskContentGeneration: {}, TaskImageProcessing: {}, TaskVideoProcessing: {},
	TaskAudioProcessing: {},
	TaskDataAnalysis: {}, TaskDataProcessing: {}, TaskMLTraining: {},
	TaskMLInference: {},
	TaskFinancialAnalysis: {}, TaskInventoryManagement: {}, TaskCustomerService: {},
	TaskMarketingAutomation: {},
	TaskDatabaseOptimization: {}, TaskSecurityScan: {}, TaskPerformanceMonitoring: {},
	TaskDeployment: {},
	TaskWordPressTheme: {}, TaskWordPressPlugin: {}, TaskCMSContent: {},
	TaskProductManagement: {}, TaskOrderProcessing: {}, TaskPricingOptimization: {},
	TaskGeneral: {}, TaskUnknown: {},
}

// ParseTaskType validates a task type string.
func ParseTaskType(s string) (TaskType, error) {
	tt := TaskType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := taskTypes[tt]; !ok {
		return "", types.Errorf(types.ErrTaskValidation, "invalid task type: %s", s)
	}
	return tt, nil
}

// DefaultPriority is applied when a request leaves priority unset.
const DefaultPriority = 50

// TaskRequest describes a task to be routed.
type TaskRequest struct {
	Type        TaskType       `json:"task_type"`
	Description string         `json:"description"`
	Priority    int            `json:"priority"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Timeout     time.Duration  `json:"timeout,omitempty"`
}

// NewTaskRequest builds a validated request. The description must be
// non-blank and priority must be in [0, 100]; a zero priority takes the
// default of 50.
func NewTaskRequest(taskType TaskType, description string, priority int) (*TaskRequest, error) {
	if _, ok := taskTypes[taskType]; !ok {
		return nil, types.Errorf(types.ErrTaskValidation, "invalid task type: %s", taskType)
	}
	if strings.TrimSpace(description) == "" {
		return nil, types.NewError(types.ErrTaskValidation, "task description cannot be empty")
	}
	if priority == 0 {
		priority = DefaultPriority
	}
	if priority < 0 || priority > 100 {
		return nil, types.Errorf(types.ErrTaskValidation, "priority must be 0-100, got %d", priority)
	}
	return &TaskRequest{
		Type:        taskType,
		Description: description,
		Priority:    priority,
		Parameters:  map[string]any{},
	}, nil
}

// RoutingResult is a single routing decision.
type RoutingResult struct {
	AgentID    string         `json:"agent_id"`
	AgentName  string         `json:"agent_name"`
	TaskType   TaskType       `json:"task_type"`
	Confidence float64        `json:"confidence"`
	Method     string         `json:"routing_method"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Routing method labels carried in RoutingResult.Method.
const (
	MethodCached   = "cached"
	MethodExact    = "exact"
	MethodFuzzy    = "fuzzy"
	MethodFallback = "fallback"
	MethodFailed   = "failed"
)
