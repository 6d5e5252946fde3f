package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := Validation("incomplete assignment", "a1", "a2")
	assert.Equal(t, "validation: incomplete assignment [a1, a2]", err.Error())

	cause := errors.New("connection reset")
	serr := Storage("commit failed", cause)
	assert.Equal(t, "storage: commit failed: connection reset", serr.Error())
	assert.Equal(t, cause, errors.Unwrap(serr))
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, IsValidation(Validation("empty name")))
	assert.True(t, IsNotFound(NotFound("procedure", "p1")))
	assert.True(t, IsConflict(Conflict("instance already completed")))
	assert.True(t, IsStorage(Storage("tx", errors.New("boom"))))

	assert.False(t, IsNotFound(Validation("empty name")))
	assert.False(t, IsValidation(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("assign procedure: %w", NotFound("target entity", "e7"))
	assert.True(t, IsNotFound(err))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOfUntypedError(t *testing.T) {
	assert.Equal(t, KindStorage, KindOf(errors.New("plain")))
}
