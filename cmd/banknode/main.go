package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankmq/bank"
	"bankmq/queue"
	"bankmq/store"
)

// NodeConfig is the optional JSON configuration of one node. Zero fields
// fall back to the coordinator defaults.
type NodeConfig struct {
	TickMillis               int  `json:"tick_millis"`
	TransactionTimeoutMillis int  `json:"transaction_timeout_millis"`
	BalanceTries             int  `json:"balance_tries"`
	BalanceRetryMillis       int  `json:"balance_retry_millis"`
	PurgeOnStart             bool `json:"purge_on_start"`
	DeleteQueuesOnStop       bool `json:"delete_queues_on_stop"`
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-i] [-broker addr] [-config path] [-table path] <bic> <remoteBic>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var (
		seed       bool
		brokerAddr string
		configPath string
		tablePath  string
	)

	flag.BoolVar(&seed, "i", false, "Seed demo accounts if the ledger holds fewer than two")
	flag.StringVar(&brokerAddr, "broker", "localhost:9090", "Address of the broker daemon")
	flag.StringVar(&configPath, "config", "", "Path to an optional config.json")
	flag.StringVar(&tablePath, "table", "", "Path to a persistent transaction table file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	bic, remoteBIC := flag.Arg(0), flag.Arg(1)

	cfg := bank.Config{BIC: bic, RemoteBIC: remoteBIC}
	if configPath != "" {
		file, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file: %v", err)
		}
		var nc NodeConfig
		if err := json.NewDecoder(file).Decode(&nc); err != nil {
			file.Close()
			log.Fatalf("Failed to decode %s: %v", configPath, err)
		}
		file.Close()

		cfg.Tick = time.Duration(nc.TickMillis) * time.Millisecond
		cfg.TransactionTimeout = time.Duration(nc.TransactionTimeoutMillis) * time.Millisecond
		cfg.BalanceTries = nc.BalanceTries
		cfg.BalanceRetryInterval = time.Duration(nc.BalanceRetryMillis) * time.Millisecond
		cfg.PurgeOnStart = nc.PurgeOnStart
		cfg.DeleteQueuesOnStop = nc.DeleteQueuesOnStop
	}

	var table store.Table
	if tablePath != "" {
		fileTable, err := store.NewFileTable(bic, tablePath)
		if err != nil {
			log.Fatalf("Failed to open transaction table %s: %v", tablePath, err)
		}
		table = fileTable
		if cfg.DeleteQueuesOnStop {
			log.Printf("[BankNode] Persistent table in use, keeping queues on stop")
			cfg.DeleteQueuesOnStop = false
		}
	} else {
		table = store.NewMemTable(bic)
	}

	ledger := store.NewLedger(bic)
	if seed {
		bank.SeedAccounts(ledger, bic)
	}

	broker, err := queue.Dial(brokerAddr)
	if err != nil {
		log.Fatalf("Failed to reach broker at %s: %v", brokerAddr, err)
	}
	defer broker.Close()

	srv, err := bank.NewServer(cfg, broker, ledger, table)
	if err != nil {
		log.Fatalf("Failed to create bank node: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("[BankNode] %s starting, peer %s, broker %s", bic, remoteBIC, brokerAddr)
	srv.Run(ctx)
}
