package output

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunWithSpinner_NoTTYRunsAction(t *testing.T) {
	called := false
	err := RunWithSpinner(context.Background(), func() error {
		called = true
		return nil
	}, WithTitle("testing"))

	assert.NoError(t, err)
	assert.True(t, called)
}

func TestRunWithSpinner_DisabledReturnsActionError(t *testing.T) {
	want := errors.New("boom")
	err := RunWithSpinner(context.Background(), func() error {
		return want
	}, WithSpinnerEnabled(false))

	assert.ErrorIs(t, err, want)
}
