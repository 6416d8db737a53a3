// Command vavilovd runs a single PBFT replica: it loads the properties
// file (§6), wires C1 (crypto), C7 (transport), C9 (timers) and C8 (the
// engine) together, and blocks until an interrupt is received, grounded
// on cmd/cerera/main.go's flag-parse/config-load/signal-wait shape.
package main

import (
	"context"
	"crypto/ecdsa"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vavilov/consensus/internal/vavilov/config"
	"github.com/vavilov/consensus/internal/vavilov/cryptoutil"
	"github.com/vavilov/consensus/internal/vavilov/engine"
	"github.com/vavilov/consensus/internal/vavilov/logger"
	"github.com/vavilov/consensus/internal/vavilov/seqn"
	"github.com/vavilov/consensus/internal/vavilov/transport"
	"github.com/vavilov/consensus/internal/vavilov/upcall"
	"github.com/vavilov/consensus/internal/vavilov/vaverr"
	"github.com/vavilov/consensus/internal/vavilov/wire"
)

func parseFlags() (configPath string, selfIndex int, logPath string) {
	cfgPath := flag.String("config", "config.json", "path to the node properties file")
	idx := flag.Int("self", 0, "index of this replica within initial_membership")
	logFile := flag.String("log", "vavilovd.log", "path to the log file")
	flag.Parse()
	return *cfgPath, *idx, *logFile
}

// loadOrGenerateKey mirrors config.SetNodeKey's load-if-present,
// generate-if-absent behavior, but for a direct ECDSA keypair rather than
// going through an ECDH/ECDSA conversion — this spec signs with ECDSA
// directly (see cryptoutil.Sign/Verify).
func loadOrGenerateKey(path string) (priv *ecdsa.PrivateKey, generated bool, err error) {
	if data, err := os.ReadFile(path); err == nil {
		priv, err := cryptoutil.DecodePrivateKeyPEM(string(data))
		if err != nil {
			return nil, false, vaverr.NewConfigError(path, err)
		}
		return priv, false, nil
	}
	priv, err = cryptoutil.GenerateKey()
	if err != nil {
		return nil, false, vaverr.NewConfigError(path, err)
	}
	pemText, err := cryptoutil.EncodePrivateKeyPEM(priv)
	if err != nil {
		return nil, false, vaverr.NewConfigError(path, err)
	}
	if err := os.WriteFile(path, []byte(pemText), 0600); err != nil {
		return nil, false, vaverr.NewConfigError(path, err)
	}
	return priv, true, nil
}

// loadTruststore reads a truststore file of repeated "<cryptoName>\n<PEM
// public key block>\n" records; a malformed or unreadable truststore is
// fatal per §7's ConfigError policy, while a missing file yields an empty
// truststore.
func loadTruststore(path string) (*cryptoutil.Truststore, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cryptoutil.NewTruststore(), nil
	}
	if err != nil {
		return nil, vaverr.NewConfigError(path, err)
	}

	ts := cryptoutil.NewTruststore()
	records := splitTruststoreRecords(string(data))
	for _, rec := range records {
		name, pemBlock, ok := splitNameAndPEM(rec)
		if !ok {
			continue
		}
		pub, err := cryptoutil.DecodePublicKeyPEM(pemBlock)
		if err != nil {
			return nil, vaverr.NewConfigError(path, err)
		}
		ts.Add(name, pub)
	}
	return ts, nil
}

// splitTruststoreRecords splits on blank lines; each record is one
// cryptoName line followed by one PEM block.
func splitTruststoreRecords(data string) []string {
	var records []string
	var cur []byte
	for _, line := range splitLines(data) {
		if line == "" {
			if len(cur) > 0 {
				records = append(records, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, line...)
		cur = append(cur, '\n')
	}
	if len(cur) > 0 {
		records = append(records, string(cur))
	}
	return records
}

func splitNameAndPEM(record string) (name string, pemBlock string, ok bool) {
	lines := splitLines(record)
	if len(lines) < 2 {
		return "", "", false
	}
	return lines[0], record[len(lines[0])+1:], true
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func main() {
	cfgPath, selfIndex, logPath := parseFlags()

	logger.Init(logger.Config{Path: logPath, Level: "info", Console: true})
	log := logger.Named("vavilovd")
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalw("failed to load config", "err", err)
	}

	members, err := cfg.Members()
	if err != nil {
		log.Fatalw("failed to parse initial_membership", "err", err)
	}
	if selfIndex < 0 || selfIndex >= len(members) {
		log.Fatalw("self index out of range", "self", selfIndex, "n", len(members))
	}

	priv, generated, err := loadOrGenerateKey(cfg.KeystorePath)
	if err != nil {
		log.Fatalw("failed to load keystore", "err", err)
	}
	if generated {
		phrase, err := cryptoutil.Mnemonic(priv)
		if err != nil {
			log.Warnw("failed to derive recovery mnemonic", "err", err)
		} else {
			log.Infow("generated new keystore identity", "fingerprint", cryptoutil.Fingerprint(&priv.PublicKey), "recovery_phrase", phrase)
		}
	}

	truststore, err := loadTruststore(cfg.TruststorePath)
	if err != nil {
		log.Fatalw("failed to load truststore", "err", err)
	}
	truststore.Add(cfg.CryptoName, &priv.PublicKey)

	self := members[selfIndex]

	var eng *engine.Engine
	adapter := transport.NewAdapter(transport.DefaultConfig(), self, func(kind wire.Kind, payload []byte, from seqn.Host) {
		eng.HandleInboundFrame(kind, payload, from)
	})

	up := upcall.Surface{
		InitialNotification: func(self seqn.Host, channelID string) {
			log.Infow("channel open", "self", self, "channel", channelID)
		},
		ViewChange: func(members []seqn.Host, viewNumber uint32) {
			log.Infow("view installed", "members", members, "view", viewNumber)
		},
		CommittedNotification: func(payload, sig []byte) {
			log.Infow("committed", "bytes", len(payload))
		},
	}

	eng = engine.New(engine.Config{
		Self:          self,
		Members:       members,
		CryptoName:    cfg.CryptoName,
		PrivateKey:    priv,
		Truststore:    truststore,
		ReconnectTime: cfg.ReconnectTime(),
		LeaderTimeout: cfg.LeaderTimeout(),
		ChannelID:     "vavilov-channel-0",
	}, adapter, up)

	if err := adapter.Listen(self.String()); err != nil {
		log.Fatalw("failed to listen", "addr", self.String(), "err", err)
	}
	for _, m := range members {
		if m.Compare(self) == 0 {
			continue
		}
		go adapter.Dial(m)
	}

	go eng.Run()

	log.Infow("replica started", "self", self, "leader", eng.Status().Leader)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Infow("shutting down")
	eng.Stop()
	adapter.Close()
	time.Sleep(50 * time.Millisecond)
}
