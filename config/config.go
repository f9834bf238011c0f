// Package config defines the node-wide configuration surface: the
// jurisdiction this node's entities transact against, the validator
// quorum and fee parameters each entity is bootstrapped with, and the
// protocol constants spec §8 fixes for lot quantization, settlement
// bounds, and HTLC timelocks.
//
// Grounded on the teacher's config.go: a flags-tagged struct parsed by
// jessevdk/go-flags from a config file then the command line, with
// command-line values taking precedence, defaults filled in first.
package config

import (
	"encoding/hex"
	"math/big"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcec/v2"
	flags "github.com/jessevdk/go-flags"

	"github.com/xlnfinance/xln-sub008/ledger"
	"github.com/xlnfinance/xln-sub008/xlnutil/er"
)

const (
	defaultConfigFilename = "xlnd.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"

	// DefaultHTLCExpirySeconds is the base expiry a sender computes an
	// HTLC timelock from absent any route-specific override, spec §4.3.
	DefaultHTLCExpirySeconds = 120

	// DefaultMinTimelockDeltaMS is the per-hop timelock shrinkage a
	// forwarding intermediary must enforce, spec §8.
	DefaultMinTimelockDeltaMS = 3 * 60 * 60 * 1000 // 3h, one lnd CLTV delta's rough ms equivalent

	// DefaultMinForwardTimelockMS is the floor below which a forwarded
	// HTLC's remaining timelock may never fall, spec §8.
	DefaultMinForwardTimelockMS = 10 * 60 * 1000 // 10m

	// DefaultLeftDisputeDelay and DefaultRightDisputeDelay are the 10x
	// on-chain-block multipliers of spec §4.4's disputeConfig.
	DefaultLeftDisputeDelay  = 10
	DefaultRightDisputeDelay = 10

	// DefaultMaxSettlementDiff bounds any single settlement diff
	// component, spec §4.2 / §8.
	DefaultMaxSettlementDiff = "1000000000000000000000000" // 1e24 wei
)

var (
	defaultHomeDir    = appDataDir("xlnd")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
)

func appDataDir(appName string) string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, "."+appName)
	}
	return filepath.Join(".", appName)
}

// Jurisdiction identifies the on-chain contract pair an entity's
// settlements, disputes, and jBatches are bound to, mirroring
// chain.Config but expressed as hex strings for the config file.
type Jurisdiction struct {
	ChainID               uint64 `long:"chainid" description:"EVM chain ID of the configured jurisdiction"`
	DepositoryAddress     string `long:"depository" description:"hex address of the Depository contract"`
	EntityProviderAddress string `long:"entityprovider" description:"hex address of the EntityProvider contract"`
}

// Decode parses the hex address fields into a chain.Config-compatible
// form. Returned as raw bytes to avoid an import cycle with chain;
// callers assemble chain.Config themselves.
func (j Jurisdiction) Decode() (depository, entityProvider [20]byte, err R) {
	d, errr := decodeAddress(j.DepositoryAddress)
	if errr != nil {
		return depository, entityProvider, ErrBadAddress.New("depository", errr)
	}
	e, errr := decodeAddress(j.EntityProviderAddress)
	if errr != nil {
		return depository, entityProvider, ErrBadAddress.New("entityprovider", errr)
	}
	copy(depository[:], d)
	copy(entityProvider[:], e)
	return depository, entityProvider, nil
}

func decodeAddress(s string) ([]byte, error) {
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return nil, err
	}
	if len(b) != 20 {
		return nil, errBadAddressLength
	}
	return b, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// ValidatorConfig is one entity's configured quorum: hex-encoded
// compressed pubkeys and the signature threshold spec §2 requires a
// Hanko to meet.
type ValidatorConfig struct {
	Validators []string `long:"validator" description:"hex-encoded compressed pubkey of one validator (repeatable)"`
	Threshold  int      `long:"threshold" description:"number of validator signatures a hanko must carry"`
}

// DisputeDelays is spec §4.4's disputeConfig: 10x multipliers applied
// to on-chain blocks before a unilateral dispute can finalize.
type DisputeDelays struct {
	LeftDisputeDelay  uint64 `long:"leftdisputedelay" description:"blocks*10 the left side must wait before finalizing"`
	RightDisputeDelay uint64 `long:"rightdisputedelay" description:"blocks*10 the right side must wait before finalizing"`
}

// Protocol carries the fixed constants spec §8 names: lot
// quantization, settlement and timelock bounds. These are not
// per-entity; they're network-wide constants every node must agree on
// to stay in consensus with its counterparties.
type Protocol struct {
	LotScale             int64  `long:"lotscale" description:"wei per lot in the orderbook's fixed quantization"`
	MaxLots              uint32 `long:"maxlots" description:"largest representable lot quantity"`
	MaxFillRatio         uint32 `long:"maxfillratio" description:"fill ratio denominator for swaps"`
	MaxSettlementDiff    string `long:"maxsettlementdiff" description:"largest absolute settlement diff component, decimal wei"`
	MinTimelockDeltaMS   uint64 `long:"mintimelockdeltams" description:"minimum per-hop HTLC timelock shrinkage, ms"`
	MinForwardTimelockMS uint64 `long:"minforwardtimelockms" description:"floor below which a forwarded HTLC timelock may never fall, ms"`
	DefaultHTLCExpiryS   uint64 `long:"defaulthtlcexpirys" description:"base HTLC expiry a sender computes its timelock from, seconds"`
}

// Config is the full node configuration, parsed from a config file and
// overridden by command-line flags, in that precedence order.
type Config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	DebugLevel  string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}"`

	SkipPendingForward bool `long:"skippendingforward" description:"debug-only: suppress multi-hop HTLC forwarding, for frame-by-frame demos"`

	EntityID     uint64 `long:"entityid" description:"this node's own entity ID in the configured jurisdiction"`
	StartNonce   uint64 `long:"startnonce" description:"entityNonce the jurisdiction contract already expects for EntityID"`
	SignerKey    string `long:"signerkey" description:"hex-encoded secp256k1 private key this node signs hankos with"`
	OnionKey     string `long:"onionkey" description:"hex-encoded secp256k1 private key this node decrypts HTLC envelopes with"`
	ChainRPCAddr string `long:"chainrpc" description:"host:port of the jurisdiction adapter's gRPC endpoint"`
	GossipAddr   string `long:"gossipaddr" description:"host:port of the gossip directory's websocket endpoint"`

	Jurisdiction Jurisdiction    `group:"Jurisdiction" namespace:"jurisdiction"`
	Validator    ValidatorConfig `group:"Validator" namespace:"validator"`
	Dispute      DisputeDelays   `group:"Dispute" namespace:"dispute"`
	Protocol     Protocol        `group:"Protocol" namespace:"protocol"`
}

func defaultConfig() Config {
	return Config{
		ConfigFile: defaultConfigFile,
		DataDir:    defaultDataDir,
		DebugLevel: defaultLogLevel,
		Dispute: DisputeDelays{
			LeftDisputeDelay:  DefaultLeftDisputeDelay,
			RightDisputeDelay: DefaultRightDisputeDelay,
		},
		Protocol: Protocol{
			LotScale:             1_000_000_000_000,
			MaxLots:              1<<32 - 1,
			MaxFillRatio:         65535,
			MaxSettlementDiff:    DefaultMaxSettlementDiff,
			MinTimelockDeltaMS:   DefaultMinTimelockDeltaMS,
			MinForwardTimelockMS: DefaultMinForwardTimelockMS,
			DefaultHTLCExpiryS:   DefaultHTLCExpirySeconds,
		},
	}
}

// Load follows the teacher's three-stage precedence: defaults, then
// the config file (if present), then command-line flags, with each
// later stage free to override the former.
func Load(args []string) (*Config, []string, R) {
	cfg := defaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			return nil, nil, ErrParse.New("pre-parsing command line", err)
		}
	}
	if preCfg.ConfigFile != "" {
		cfg.ConfigFile = preCfg.ConfigFile
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(cfg.ConfigFile); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, nil, ErrParse.New("parsing config file", err)
		}
	}

	remaining, err := parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, nil, ErrParse.New("", err)
		}
		return nil, nil, ErrParse.New("parsing command line", err)
	}

	if errr := cfg.validate(); errr != nil {
		return nil, nil, errr
	}
	return &cfg, remaining, nil
}

// MaxSettlementDiffAmount parses the configured decimal-wei bound into
// an ledger.Amount, for settlement.Propose's maxDiff argument.
func (p Protocol) MaxSettlementDiffAmount() (ledger.Amount, R) {
	v, ok := new(big.Int).SetString(p.MaxSettlementDiff, 10)
	if !ok {
		return ledger.Amount{}, ErrInvalidProtocolConstant.New("maxsettlementdiff is not a decimal integer", nil)
	}
	return ledger.NewAmountFromBig(v), nil
}

// DecodeSignerKey parses SignerKey into a private key. An empty or
// malformed key is an error.
func (c Config) DecodeSignerKey() (*btcec.PrivateKey, R) {
	return decodePrivateKey(c.SignerKey)
}

// DecodeOnionKey parses OnionKey into a private key. Returns (nil, nil)
// if unset, since forwarding HTLCs is optional for a leaf node.
func (c Config) DecodeOnionKey() (*btcec.PrivateKey, R) {
	if c.OnionKey == "" {
		return nil, nil
	}
	return decodePrivateKey(c.OnionKey)
}

func decodePrivateKey(s string) (*btcec.PrivateKey, R) {
	b, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return nil, ErrBadAddress.New("malformed private key hex", err)
	}
	if len(b) != 32 {
		return nil, ErrBadAddress.New("private key must be 32 bytes", nil)
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv, nil
}

func (c Config) validate() R {
	if c.Validator.Threshold <= 0 {
		return ErrInvalidValidatorSet.New("threshold must be positive", nil)
	}
	if c.Validator.Threshold > len(c.Validator.Validators) {
		return ErrInvalidValidatorSet.New("threshold exceeds configured validator count", nil)
	}
	if c.Protocol.MaxFillRatio == 0 {
		return ErrInvalidProtocolConstant.New("maxfillratio must be positive", nil)
	}
	return nil
}
