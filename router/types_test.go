package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devskyy/runway/types"
)

func TestParseTaskType(t *testing.T) {
	tt, err := ParseTaskType("code_generation")
	require.NoError(t, err)
	assert.Equal(t, TaskCodeGeneration, tt)

	tt, err = ParseTaskType("  Product_Management ")
	require.NoError(t, err)
	assert.Equal(t, TaskProductManagement, tt)

	_, err = ParseTaskType("time_travel")
	require.Error(t, err)
	assert.Equal(t, types.ErrTaskValidation, types.GetErrorCode(err))
}

func TestNewTaskRequest(t *testing.T) {
	req, err := NewTaskRequest(TaskContentGeneration, "write product copy", 70)
	require.NoError(t, err)
	assert.Equal(t, TaskContentGeneration, req.Type)
	assert.Equal(t, 70, req.Priority)
	assert.NotNil(t, req.Parameters)
}

func TestNewTaskRequest_DefaultPriority(t *testing.T) {
	req, err := NewTaskRequest(TaskGeneral, "do something", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority, req.Priority)
}

func TestNewTaskRequest_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		taskType    TaskType
		description string
		priority    int
	}{
		{"unknown type", TaskType("quantum"), "desc", 50},
		{"empty description", TaskGeneral, "", 50},
		{"blank description", TaskGeneral, "   ", 50},
		{"priority too high", TaskGeneral, "desc", 101},
		{"negative priority", TaskGeneral, "desc", -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTaskRequest(tt.taskType, tt.description, tt.priority)
			require.Error(t, err)
			assert.Equal(t, types.ErrTaskValidation, types.GetErrorCode(err))
		})
	}
}
