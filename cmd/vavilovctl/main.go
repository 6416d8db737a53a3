// Command vavilovctl is the admin REPL for a replica: it boots the same
// engine wiring as vavilovd and drives it from a readline console instead
// of running headless, grounded on cmd/cereractl/main.go's embedded-app
// readline loop (status/balance/send/help/exit).
package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/vavilov/consensus/internal/vavilov/config"
	"github.com/vavilov/consensus/internal/vavilov/cryptoutil"
	"github.com/vavilov/consensus/internal/vavilov/engine"
	"github.com/vavilov/consensus/internal/vavilov/logger"
	"github.com/vavilov/consensus/internal/vavilov/seqn"
	"github.com/vavilov/consensus/internal/vavilov/transport"
	"github.com/vavilov/consensus/internal/vavilov/upcall"
	"github.com/vavilov/consensus/internal/vavilov/wire"
)

// loadOrGenerateKeyQuiet mirrors vavilovd's loadOrGenerateKey; duplicated
// rather than imported since cmd/vavilovd and cmd/vavilovctl are both
// package main and cannot import one another.
func loadOrGenerateKeyQuiet(path string) (*ecdsa.PrivateKey, error) {
	if data, err := os.ReadFile(path); err == nil {
		return cryptoutil.DecodePrivateKeyPEM(string(data))
	}
	priv, err := cryptoutil.GenerateKey()
	if err != nil {
		return nil, err
	}
	pemText, err := cryptoutil.EncodePrivateKeyPEM(priv)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(pemText), 0600); err != nil {
		return nil, err
	}
	return priv, nil
}

// loadTruststoreQuiet mirrors vavilovd's loadTruststore/splitTruststoreRecords
// truststore-file format: repeated "<cryptoName>\n<PEM public key block>\n".
func loadTruststoreQuiet(path string) (*cryptoutil.Truststore, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cryptoutil.NewTruststore(), nil
	}
	if err != nil {
		return nil, err
	}
	ts := cryptoutil.NewTruststore()
	var lines []string
	start := 0
	text := string(data)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}

	var name string
	var block []string
	flush := func() error {
		if name == "" || len(block) == 0 {
			return nil
		}
		pub, err := cryptoutil.DecodePublicKeyPEM(strings.Join(block, "\n") + "\n")
		if err != nil {
			return err
		}
		ts.Add(name, pub)
		name, block = "", nil
		return nil
	}
	for _, line := range lines {
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if name == "" {
			name = line
			continue
		}
		block = append(block, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return ts, nil
}

func usage() string {
	return strings.Join([]string{
		"Available commands:",
		"  status              show view/seqN/leader/suspect-leader state",
		"  peers               show peer misbehavior/consensus-help scores",
		"  propose <text>      submit a ProposeRequest (leader-only; dropped otherwise)",
		"  help                show this message",
		"  exit                quit vavilovctl",
	}, "\n")
}

func main() {
	cfgPath := "config.json"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	selfIndex := 0
	if len(os.Args) > 2 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil {
			selfIndex = n
		}
	}

	logger.Init(logger.Config{Path: "vavilovctl.log", Level: "info", Console: false})
	log := logger.Named("vavilovctl")
	defer logger.Sync()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println("failed to load config:", err)
		os.Exit(1)
	}
	members, err := cfg.Members()
	if err != nil {
		fmt.Println("failed to parse initial_membership:", err)
		os.Exit(1)
	}
	if selfIndex < 0 || selfIndex >= len(members) {
		fmt.Println("self index out of range")
		os.Exit(1)
	}
	self := members[selfIndex]

	priv, err := loadOrGenerateKeyQuiet(cfg.KeystorePath)
	if err != nil {
		fmt.Println("failed to load keystore:", err)
		os.Exit(1)
	}

	truststore, err := loadTruststoreQuiet(cfg.TruststorePath)
	if err != nil {
		fmt.Println("failed to load truststore:", err)
		os.Exit(1)
	}
	truststore.Add(cfg.CryptoName, &priv.PublicKey)

	var eng *engine.Engine
	adapter := transport.NewAdapter(transport.DefaultConfig(), self, func(kind wire.Kind, payload []byte, from seqn.Host) {
		eng.HandleInboundFrame(kind, payload, from)
	})

	up := upcall.Surface{
		CommittedNotification: func(payload, sig []byte) {
			fmt.Printf("\ncommitted: %q\n> ", string(payload))
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
		fmt.Println("failed to listen:", err)
		os.Exit(1)
	}
	for _, m := range members {
		if m.Compare(self) == 0 {
			continue
		}
		go adapter.Dial(m)
	}
	go eng.Run()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rl, err := readline.New("> ")
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	var seq int64
	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		input := strings.SplitN(strings.TrimSpace(line), " ", 2)
		switch input[0] {
		case "status":
			st := eng.Status()
			fmt.Printf("self=%s view=%d leader=%s currentSeqN=%s highestSeqN=%s suspectLeader=%v\n",
				st.Self, st.ViewNumber, st.Leader, st.CurrentSeqN, st.HighestSeqN, st.SuspectLeader)
		case "peers":
			st := eng.Status()
			for host, score := range st.PeerScores {
				fmt.Printf("%s: %.1f\n", host, score)
			}
		case "propose":
			if len(input) < 2 || input[1] == "" {
				fmt.Println("usage: propose <text>")
				continue
			}
			seq++
			eng.SubmitPropose([]byte(input[1]), seq)
		case "help":
			fmt.Println(usage())
		case "exit":
			log.Infow("shutting down")
			eng.Stop()
			adapter.Close()
			os.Exit(0)
		default:
			fmt.Println("unknown command, use help to see available commands")
		}
	}

	<-ctx.Done()
	log.Infow("shutting down")
	eng.Stop()
	adapter.Close()
}
