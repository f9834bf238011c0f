package gossip

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/xlnfinance/xln-sub008/ledger"
)

func TestWireProfileRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.Nil(t, err)
	pub := priv.PubKey()

	wp := wireProfile{
		EntityID:  7,
		PubKeyHex: hex.EncodeToString(pub.SerializeCompressed()),
		BaseFee:   ledger.NewAmount(500),
		ShortName: "alice",
	}
	p, err := wp.toProfile()
	require.Nil(t, err)
	require.Equal(t, wp.EntityID, p.EntityID)
	require.Equal(t, wp.ShortName, p.ShortName)
	require.True(t, pub.IsEqual(p.PubKey))
}

func TestWireProfileEmptyPubKeyIsNil(t *testing.T) {
	wp := wireProfile{EntityID: 1, ShortName: "no-key"}
	p, err := wp.toProfile()
	require.Nil(t, err)
	require.Nil(t, p.PubKey)
}

func TestWireProfileRejectsMalformedHex(t *testing.T) {
	wp := wireProfile{EntityID: 1, PubKeyHex: "not-hex"}
	_, err := wp.toProfile()
	require.NotNil(t, err)
}
