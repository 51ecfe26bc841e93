package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessageFormats(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, "Op: msg: boom", E(CodeInternal, "Op", "msg", base).Error())
	assert.Equal(t, "Op: msg", E(CodeInternal, "Op", "msg", nil).Error())
	assert.Equal(t, "Op: boom", E(CodeInternal, "Op", "", base).Error())
	assert.Equal(t, "msg", E(CodeInternal, "", "msg", nil).Error())
	assert.Equal(t, "error", E(CodeInternal, "", "", nil).Error())
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument: http.StatusBadRequest,
		CodeUnauthorized:    http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeUnavailable:     http.StatusServiceUnavailable,
		CodeTimeout:         http.StatusGatewayTimeout,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		err := fmt.Errorf("wrapped: %w", E(code, "Op", "msg", nil))
		assert.Equal(t, want, HTTPStatus(err), code)
		assert.Equal(t, code, CodeFromStatus(want), code)
	}

	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("x: %w", ErrConflict)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestCodeAndMessageOf(t *testing.T) {
	err := E(CodeConflict, "SubmissionService.Start", "audition already started", ErrConflict)

	assert.True(t, IsCode(err, CodeConflict))
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Equal(t, "audition already started", MessageOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
	assert.True(t, errors.Is(err, ErrConflict))
}
