package orderbook

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnfinance/xln-sub008/ledger"
)

func lots(n int64) ledger.Amount {
	return ledger.NewAmountFromBig(new(big.Int).Mul(big.NewInt(n), LotScale))
}

func TestToFromLotsRoundTrip(t *testing.T) {
	l, err := ToLots(lots(42))
	require.Nil(t, err)
	require.Equal(t, uint32(42), l)
	require.Equal(t, int64(0), FromLots(42).Cmp(lots(42)))
}

func TestToLotsRejectsOverflow(t *testing.T) {
	huge := ledger.NewAmountFromBig(new(big.Int).Mul(big.NewInt(int64(MaxLots)+1), LotScale))
	_, err := ToLots(huge)
	require.NotNil(t, err)
	require.True(t, ErrLotsOverflow.Is(err))
}

func TestPriceTicks(t *testing.T) {
	require.Equal(t, uint64(1_000_000), PriceTicks(100, 100))
	require.Equal(t, uint64(500_000), PriceTicks(200, 100))
}

func TestAddCrossesImmediately(t *testing.T) {
	b := NewBook()
	trades, err := b.Add(10, "o1", 1, 2, lots(100), lots(100), 0)
	require.Nil(t, err)
	require.Empty(t, trades)

	trades, err = b.Add(20, "o2", 2, 1, lots(100), lots(100), 0)
	require.Nil(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, uint32(MaxFillRatio), trades[0].TakerFillRatio)
	require.Equal(t, uint32(MaxFillRatio), trades[0].MakerFillRatio)
}

func TestAddRejectsDuplicateOrder(t *testing.T) {
	b := NewBook()
	_, err := b.Add(10, "o1", 1, 2, lots(100), lots(100), 0)
	require.Nil(t, err)
	_, err = b.Add(10, "o1", 1, 2, lots(50), lots(50), 0)
	require.NotNil(t, err)
	require.True(t, ErrOrderExists.Is(err))
}

func TestCancelRemovesOrder(t *testing.T) {
	b := NewBook()
	_, err := b.Add(10, "o1", 1, 2, lots(100), lots(100), 0)
	require.Nil(t, err)
	require.Nil(t, b.Cancel(10, "o1", 1, 2))
	require.True(t, ErrUnknownOrder.Is(b.Cancel(10, "o1", 1, 2)))
}

func TestAddRejectsFillRatioAboveMax(t *testing.T) {
	b := NewBook()
	_, err := b.Add(10, "o1", 1, 2, lots(100), lots(100), MaxFillRatio+1)
	require.NotNil(t, err)
	require.True(t, ErrInvalidFill.Is(err))
}
