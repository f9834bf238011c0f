package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesCommandLineOverDefaults(t *testing.T) {
	cfg, _, err := Load([]string{
		"--validator.validator=02aa", "--validator.threshold=1",
		"--debuglevel=debug",
	})
	require.Nil(t, err)
	require.Equal(t, "debug", cfg.DebugLevel)
	require.Equal(t, uint32(65535), cfg.Protocol.MaxFillRatio)
	require.Equal(t, 1, cfg.Validator.Threshold)
	require.Equal(t, []string{"02aa"}, cfg.Validator.Validators)
}

func TestLoadRejectsThresholdAboveValidatorCount(t *testing.T) {
	_, _, err := Load([]string{
		"--validator.validator=02aa", "--validator.threshold=2",
	})
	require.NotNil(t, err)
	require.True(t, ErrInvalidValidatorSet.Is(err))
}

func TestLoadRejectsMissingThreshold(t *testing.T) {
	_, _, err := Load([]string{"--validator.validator=02aa"})
	require.NotNil(t, err)
	require.True(t, ErrInvalidValidatorSet.Is(err))
}

func TestJurisdictionDecodeRoundTrip(t *testing.T) {
	j := Jurisdiction{
		ChainID:               1,
		DepositoryAddress:     "0x0102030405060708090a0b0c0d0e0f1011121314",
		EntityProviderAddress: "1415161718191a1b1c1d1e1f2021222324252627",
	}
	depo, ep, err := j.Decode()
	require.Nil(t, err)
	require.Equal(t, byte(0x01), depo[0])
	require.Equal(t, byte(0x27), ep[19])
}

func TestJurisdictionDecodeRejectsWrongLength(t *testing.T) {
	j := Jurisdiction{DepositoryAddress: "0x1234"}
	_, _, err := j.Decode()
	require.NotNil(t, err)
	require.True(t, ErrBadAddress.Is(err))
}

func TestMaxSettlementDiffAmountParses(t *testing.T) {
	p := Protocol{MaxSettlementDiff: "1000000000000000000000000"}
	amt, err := p.MaxSettlementDiffAmount()
	require.Nil(t, err)
	require.Equal(t, "1000000000000000000000000", amt.String())
}

func TestMaxSettlementDiffAmountRejectsGarbage(t *testing.T) {
	p := Protocol{MaxSettlementDiff: "not-a-number"}
	_, err := p.MaxSettlementDiffAmount()
	require.NotNil(t, err)
	require.True(t, ErrInvalidProtocolConstant.Is(err))
}

func TestDecodeSignerKeyRoundTrip(t *testing.T) {
	cfg := Config{SignerKey: "0x" + "11"+"22"+"33"+"44"+"55"+"66"+"77"+"88"+"99"+"aa"+"bb"+"cc"+"dd"+"ee"+"ff"+"00"+"01"+"02"+"03"+"04"+"05"+"06"+"07"+"08"+"09"+"0a"+"0b"+"0c"+"0d"+"0e"+"0f"+"10"}
	priv, err := cfg.DecodeSignerKey()
	require.Nil(t, err)
	require.NotNil(t, priv)
}

func TestDecodeOnionKeyEmptyIsNil(t *testing.T) {
	cfg := Config{}
	priv, err := cfg.DecodeOnionKey()
	require.Nil(t, err)
	require.Nil(t, priv)
}

func TestDecodeSignerKeyRejectsBadLength(t *testing.T) {
	cfg := Config{SignerKey: "0x1234"}
	_, err := cfg.DecodeSignerKey()
	require.NotNil(t, err)
	require.True(t, ErrBadAddress.Is(err))
}
