package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := OutOfStock("insufficient stock for %s", "Linen Shirt")
	assert.Equal(t, "out_of_stock: insufficient stock for Linen Shirt", err.Error())
	assert.True(t, errors.Is(err, ErrOutOfStock))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindUpstream, cause, "create payment intent")

	assert.Equal(t, "upstream_failure: create payment intent: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("load: %w", NotFound("order %s", "o-1"))))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{
			name:    "plain transported error",
			err:     errors.New("duplicate_review: user already reviewed this product"),
			kind:    KindDuplicateReview,
			message: "user already reviewed this product",
		},
		{
			name:    "prefixed by transport",
			err:     errors.New("service error: invalid_transition: cannot move order from pending to shipped"),
			kind:    KindInvalidTransition,
			message: "cannot move order from pending to shipped",
		},
		{
			name:    "outermost code wins",
			err:     errors.New("refund_failed: gateway rejected refund: upstream_failure: card_declined"),
			kind:    KindRefundFailed,
			message: "gateway rejected refund: upstream_failure: card_declined",
		},
		{
			name: "bare code",
			err:  errors.New("request failed: forbidden"),
			kind: KindForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := Decode(tt.err)
			var e *Error
			require.True(t, errors.As(decoded, &e))
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestDecodeLeavesUnknownErrors(t *testing.T) {
	err := errors.New("something odd happened")
	assert.Same(t, err, Decode(err))
	assert.Nil(t, Decode(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindOutOfStock))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindInvalidState))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(KindForbidden))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(KindUpstream))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
}
