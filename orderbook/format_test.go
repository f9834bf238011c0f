package orderbook

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatLots(t *testing.T) {
	require.Equal(t, "0 lots", FormatLots(0))
	require.Equal(t, "1 lots", FormatLots(1))
	require.Equal(t, "4294967295 lots", FormatLots(MaxLots))
}
