package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
)

type stubHandler struct{ jobType string }

func (h stubHandler) Type() string       { return h.jobType }
func (stubHandler) Run(*Context) error { return nil }

func TestRegistryAcceptsOnlyKnownJobTypes(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubHandler{jobType: domaintasks.JobTypeETL}))

	assert.ErrorIs(t, reg.Register(stubHandler{jobType: domaintasks.JobTypeETL}), ErrDuplicateHandler)
	assert.ErrorIs(t, reg.Register(stubHandler{jobType: "course_build"}), ErrUnknownJobType)
	assert.ErrorIs(t, reg.Register(stubHandler{}), ErrUnknownJobType)
	assert.Error(t, reg.Register(nil))

	assert.Equal(t, []string{domaintasks.JobTypeETL}, reg.Types())
}

func TestRegistryBlankJobTypeRunsAsETL(t *testing.T) {
	reg := NewRegistry()
	h := stubHandler{jobType: domaintasks.JobTypeETL}
	require.NoError(t, reg.Register(h))

	got, ok := reg.Get("")
	require.True(t, ok)
	assert.Equal(t, h, got)

	_, ok = reg.Get("chat_respond")
	assert.False(t, ok)
}
