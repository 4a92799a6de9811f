package errors

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeTagNotFound, http.StatusNotFound},
		{CodeTagAlreadyOwned, http.StatusConflict},
		{CodeInvalidTransition, http.StatusConflict},
		{CodeInvalidSignature, http.StatusUnauthorized},
		{CodeMalformedEvent, http.StatusBadRequest},
		{CodeForbidden, http.StatusForbidden},
		{CodePartialWrite, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := TagAlreadyOwnedf("tag %s is already registered", "T1")

	assert.ErrorIs(t, err, ErrTagAlreadyOwned)
	assert.NotErrorIs(t, err, ErrTagNotFound)
	assert.Equal(t, "tag T1 is already registered", err.Error())
}

func TestPartialWrite_KeepsCauses(t *testing.T) {
	err := PartialWrite("item status changed but owner copy did not", io.ErrUnexpectedEOF, io.ErrClosedPipe)

	assert.ErrorIs(t, err, ErrPartialWrite)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestMalformedEvent_WrapsCause(t *testing.T) {
	err := MalformedEvent("invalid webhook payload", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, ErrMalformedEvent)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "invalid webhook payload: ")
}
