package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionTimer_NotStarted(t *testing.T) {
	qt := New(100 * time.Millisecond)

	assert.Zero(t, qt.Elapsed())
	assert.Equal(t, 100*time.Millisecond, qt.Remaining())
	assert.False(t, qt.ShouldForceSubmit())
}

func TestQuestionTimer_ForceSubmitAfterTimeout(t *testing.T) {
	qt := New(30 * time.Millisecond)
	qt.Start()

	assert.False(t, qt.ShouldForceSubmit())

	require.Eventually(t, qt.ShouldForceSubmit, time.Second, 5*time.Millisecond)
	assert.Zero(t, qt.Remaining())
}

func TestQuestionTimer_RestartResetsBudget(t *testing.T) {
	qt := New(40 * time.Millisecond)
	qt.Start()
	require.Eventually(t, qt.ShouldForceSubmit, time.Second, 5*time.Millisecond)

	qt.Start()
	assert.False(t, qt.ShouldForceSubmit())
	assert.Equal(t, 2, qt.GetStatus().QuestionNumber)
}

func TestQuestionTimer_ContextExpires(t *testing.T) {
	qt := New(30 * time.Millisecond)
	qt.Start()

	ctx, cancel := qt.Context(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not expire with the question budget")
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	qt := New(0)
	assert.Equal(t, DefaultForceSubmit.Seconds(), qt.GetStatus().Timeout)
}
