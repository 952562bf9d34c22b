package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"validation", NewValidation("bad"), ErrorTypeValidation},
		{"not found", NewNotFound("gone"), ErrorTypeNotFound},
		{"collaborator", NewCollaboratorUnavailable("classifier", cause), ErrorTypeCollaboratorUnavailable},
		{"malformed", NewMalformedResponse("bad json", cause), ErrorTypeMalformedResponse},
		{"conflict", NewPersistenceConflict("lost race", cause), ErrorTypePersistenceConflict},
		{"failure", NewPersistenceFailure("down", cause), ErrorTypePersistenceFailure},
		{"wrapped with fmt", fmt.Errorf("outer: %w", NewNotFound("gone")), ErrorTypeNotFound},
		{"plain error", cause, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	cause := errors.New("throttled")
	wrapped := Wrap(NewPersistenceFailure("put theme", cause), "track themes")
	assert.True(t, IsPersistenceFailure(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "track themes: put theme")

	plain := Wrap(cause, "classify")
	assert.True(t, IsInternal(plain))
	assert.ErrorIs(t, plain, cause)
}

func TestCollaboratorUnavailable_NamesCollaborator(t *testing.T) {
	err := NewCollaboratorUnavailable("narrative", errors.New("deadline exceeded"))
	assert.True(t, IsCollaboratorUnavailable(err))
	assert.False(t, IsMalformedResponse(err))
	assert.Contains(t, err.Error(), `"narrative"`)
}
