package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAppError_WrapAndIs(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := fmt.Errorf("insert payment: %w", Internal("Internal Server Error", cause))

	assert.True(t, stderrors.Is(err, ErrInternalServer))
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, stderrors.Is(err, BadRequest("Internal Server Error", nil)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
}

func TestConstructorsDoNotShareSentinels(t *testing.T) {
	_ = Internal("Internal Server Error", io.EOF)
	assert.Nil(t, ErrInternalServer.Err)
}

func TestStatusOf_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(io.EOF))
	assert.Equal(t, http.StatusBadRequest, StatusOf(BadRequest("bad", nil)))
}

func TestRespond(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"bad request", BadRequest("Invalid email address", nil), http.StatusBadRequest, `{"error":"Invalid email address"}`},
		{"not found", NotFound("No payments found for this email"), http.StatusNotFound, `{"message":"No payments found for this email"}`},
		{"plain", io.EOF, http.StatusInternalServerError, `{"error":"Internal Server Error"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Respond(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}
