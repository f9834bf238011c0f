// Command xlnd runs a single entity's bilateral-account process: it
// loads a node configuration, dials its jurisdiction adapter and
// gossip directory, and drives the account/entity state machines on a
// tick loop until interrupted. Grounded on the teacher's pktd.go: an
// xxxMain(...) er.R wrapped by a thin main() that os.Exit(1)s on
// error, with config/logging brought up before anything else starts.
package main

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xlnfinance/xln-sub008/chain"
	"github.com/xlnfinance/xln-sub008/config"
	"github.com/xlnfinance/xln-sub008/crypto"
	"github.com/xlnfinance/xln-sub008/entity"
	"github.com/xlnfinance/xln-sub008/gossip"
	"github.com/xlnfinance/xln-sub008/ledger"
	"github.com/xlnfinance/xln-sub008/xlnutil/er"
)

type R = er.R

func main() {
	if err := xlndMain(); err != nil {
		os.Exit(1)
	}
}

// xlndMain is the real entrypoint. It returns rather than exiting so
// deferred cleanup always runs, per the teacher's pktdMain pattern.
func xlndMain() R {
	cfg, _, errr := config.Load(os.Args[1:])
	if errr != nil {
		return errr
	}
	setLogLevels(cfg.DebugLevel)

	interrupt := interruptListener()
	defer log.Info("shutdown complete")

	signer, errr := buildSigner(*cfg)
	if errr != nil {
		return errr
	}
	onionKey, errr := cfg.DecodeOnionKey()
	if errr != nil {
		return errr
	}
	validators, errr := buildValidatorSet(*cfg)
	if errr != nil {
		return errr
	}
	depository, entityProvider, errr := cfg.Jurisdiction.Decode()
	if errr != nil {
		return errr
	}
	chainCfg := chain.Config{
		ChainID:               cfg.Jurisdiction.ChainID,
		DepositoryAddress:     depository,
		EntityProviderAddress: entityProvider,
	}

	directory, closeDirectory := buildDirectory(*cfg)
	defer closeDirectory()

	store, errr := openStore(*cfg)
	if errr != nil {
		return errr
	}
	if store != nil {
		defer store.Close()
	}

	e := entity.NewEntity(ledger.EntityID(cfg.EntityID), validators, []crypto.Signer{signer}, chainCfg, directory, cfg.StartNonce, onionKey)
	e.SkipPendingForward = cfg.SkipPendingForward

	var adapter *chain.GRPCAdapter
	var events <-chan chain.Event
	if cfg.ChainRPCAddr != "" {
		var err error
		adapter, err = chain.DialGRPCAdapter(cfg.ChainRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return er.E(err)
		}
		defer adapter.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ch, err := adapter.Subscribe(ctx, e.ID, 0)
		if err != nil {
			return er.E(err)
		}
		events = ch
	}

	e.AddCrontabHook(1, func(ent *entity.Entity) { maybeBroadcastBatch(ent, chainCfg, adapter) })

	log.Infof("entity %d starting", cfg.EntityID)
	runLoop(e, chainCfg, adapter, events, interrupt)
	return nil
}

// runLoop drives Tick on a fixed cadence, folds any arriving J-events,
// and broadcasts an accumulated jBatch once nothing else is pending,
// matching spec §4.6's "broadcast when idle" cadence. It returns once
// interrupt fires.
func runLoop(e *entity.Entity, chainCfg chain.Config, adapter *chain.GRPCAdapter, events <-chan chain.Event, interrupt <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var jHeight uint64
	for {
		select {
		case <-interrupt:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Kind == chain.EventBlockTip && ev.BlockTip != nil {
				jHeight = ev.BlockTip.BlockNumber
			}
			if err := e.ApplyJEvent(ev); err != nil {
				log.Warnf("dropping unapplicable J-event: %v", err)
			}
		case now := <-ticker.C:
			inputs := e.Tick(now.UnixMilli(), jHeight)
			for cp, input := range inputs {
				log.Debugf("proposed frame height=%d to counterparty=%d", input.Frame.Height, cp)
			}
		}
	}
}

func maybeBroadcastBatch(e *entity.Entity, chainCfg chain.Config, adapter *chain.GRPCAdapter) {
	if adapter == nil || e.Batch.Sent != nil || e.Batch.Current.IsEmpty() {
		return
	}
	batchHash, errr := e.Batch.Broadcast(chainCfg, nil)
	if errr != nil {
		log.Warnf("batch broadcast assembly failed: %v", errr)
		return
	}
	hanko, err := crypto.CollectHanko(batchHash, e.Signers...)
	if err != nil {
		log.Warnf("hanko collection failed: %v", err)
		return
	}
	if errr := e.Batch.AttachHanko(hanko); errr != nil {
		log.Warnf("attach hanko failed: %v", errr)
		return
	}
	sub := chain.BatchSubmission{
		Entity:  e.ID,
		Nonce:   e.Batch.Sent.Nonce,
		Encoded: e.Batch.Sent.Batch.Encode(),
		Hanko:   hanko.Sigs[e.Signers[0].ValidatorID()],
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adapter.SubmitBatch(ctx, sub); err != nil {
		log.Warnf("batch submission failed: %v", err)
	}
}

func buildSigner(cfg config.Config) (crypto.Signer, R) {
	priv, errr := cfg.DecodeSignerKey()
	if errr != nil {
		return nil, errr
	}
	return crypto.LocalSigner{ID: crypto.ValidatorID(hex.EncodeToString(priv.PubKey().SerializeCompressed())), Key: priv}, nil
}

func buildValidatorSet(cfg config.Config) (crypto.ValidatorSet, R) {
	keys := make(map[crypto.ValidatorID]*btcec.PublicKey, len(cfg.Validator.Validators))
	for _, hexKey := range cfg.Validator.Validators {
		b, err := hex.DecodeString(hexKey)
		if err != nil {
			return crypto.ValidatorSet{}, config.ErrBadAddress.New("malformed validator pubkey hex", err)
		}
		pub, err := btcec.ParsePubKey(b)
		if err != nil {
			return crypto.ValidatorSet{}, config.ErrBadAddress.New("invalid validator pubkey", err)
		}
		keys[crypto.ValidatorID(hexKey)] = pub
	}
	return crypto.ValidatorSet{Keys: keys, Threshold: cfg.Validator.Threshold}, nil
}

func buildDirectory(cfg config.Config) (gossip.Directory, func()) {
	if cfg.GossipAddr != "" {
		dir, err := gossip.DialWSDirectory(cfg.GossipAddr)
		if err != nil {
			log.Warnf("gossip dial failed, falling back to empty directory: %v", err)
			mem := gossip.NewMemDirectory()
			return mem, func() {}
		}
		return dir, func() { dir.Close() }
	}
	return gossip.NewMemDirectory(), func() {}
}

func openStore(cfg config.Config) (*entity.BoltEntityStore, R) {
	if cfg.DataDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, er.E(err)
	}
	store, err := entity.OpenBoltEntityStore(filepath.Join(cfg.DataDir, "entities.db"))
	if err != nil {
		return nil, er.E(err)
	}
	return store, nil
}
