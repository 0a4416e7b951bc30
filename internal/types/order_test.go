package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantleap/intraday-engine/pkg/errors"
)

func validRequest() OrderRequest {
	return OrderRequest{
		ClientID:    uuid.NewString(),
		Exchange:    "NFO",
		Symbol:      "NIFTY2590224500CE",
		Side:        OrderSideSell,
		OrderType:   OrderTypeMarket,
		Quantity:    75,
		ProductType: "INTRADAY",
	}
}

func TestOrderRequestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := validRequest()
		assert.NoError(t, req.Validate())
	})

	t.Run("missing client id", func(t *testing.T) {
		req := validRequest()
		req.ClientID = ""

		err := req.Validate()
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidOrder))
	})

	t.Run("client id must be a uuid", func(t *testing.T) {
		req := validRequest()
		req.ClientID = "retry-1"
		assert.Error(t, req.Validate())
	})

	t.Run("zero quantity", func(t *testing.T) {
		req := validRequest()
		req.Quantity = 0
		assert.Error(t, req.Validate())
	})

	t.Run("unknown side", func(t *testing.T) {
		req := validRequest()
		req.Side = "SHORT"
		assert.Error(t, req.Validate())
	})

	t.Run("negative price", func(t *testing.T) {
		req := validRequest()
		req.Price = -1
		assert.Error(t, req.Validate())
	})
}
