package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("loading: %w", ErrDocumentNotFound), http.StatusNotFound},
		{"duplicate", &DuplicateIDError{ID: "doc-1"}, http.StatusConflict},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"app error wins", New(ErrInternal, http.StatusTeapot, "brewing"), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestDuplicateIDError(t *testing.T) {
	err := fmt.Errorf("adding batch: %w", &DuplicateIDError{ID: "doc-7"})

	assert.ErrorIs(t, err, ErrDuplicateID)
	var dup *DuplicateIDError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, "doc-7", dup.ID)
	assert.Contains(t, err.Error(), `"doc-7"`)
}
