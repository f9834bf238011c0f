package chain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xlnfinance/xln-sub008/ledger"
)

func TestBatchSubmissionJSONRoundTrip(t *testing.T) {
	sub := BatchSubmission{
		Entity:  ledger.EntityID(3),
		Nonce:   7,
		Encoded: []byte{0x01, 0x02, 0x03},
		Hanko:   []byte{0xaa, 0xbb},
	}
	body, err := json.Marshal(sub)
	require.NoError(t, err)

	var got BatchSubmission
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, sub, got)
}

func TestEventJSONRoundTripPreservesAmounts(t *testing.T) {
	ev := Event{
		Kind:    EventCollateralUpdated,
		JHeight: 42,
		CollateralUpdated: &CollateralUpdated{
			Left:          1,
			Right:         2,
			TokenID:       0,
			NewCollateral: ledger.NewAmount(1_000_000),
			NewOndelta:    ledger.NewAmount(-500),
		},
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, EventCollateralUpdated, got.Kind)
	require.NotNil(t, got.CollateralUpdated)
	require.Equal(t, "1000000", got.CollateralUpdated.NewCollateral.String())
	require.Equal(t, "-500", got.CollateralUpdated.NewOndelta.String())
}

func TestActiveDisputeResponseJSONRoundTrip(t *testing.T) {
	resp := activeDisputeResponse{Hash: make([]byte, 32), Ok: true}
	for i := range resp.Hash {
		resp.Hash[i] = byte(i)
	}
	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var got activeDisputeResponse
	require.NoError(t, json.Unmarshal(body, &got))
	require.True(t, got.Ok)
	require.Equal(t, resp.Hash, got.Hash)
}
