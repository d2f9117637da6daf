package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nhle/daily-digest/internal/credential"
	"github.com/nhle/daily-digest/internal/digest"
	"github.com/nhle/daily-digest/internal/model"
	"github.com/nhle/daily-digest/internal/pipeline"
	"github.com/nhle/daily-digest/internal/sched"
	mailsource "github.com/nhle/daily-digest/internal/source/mail"
	"github.com/nhle/daily-digest/internal/source/news"
	"github.com/nhle/daily-digest/internal/source/weather"
	"github.com/nhle/daily-digest/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	once := flag.Bool("once", false, "run a single digest pass and exit")
	setCred := flag.String("set-credential", "", "store a secret in the system keyring (value read from stdin) and exit")
	deleteCred := flag.String("delete-credential", "", "remove a secret from the system keyring and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *setCred != "" || *deleteCred != "" {
		if err := manageCredential(*setCred, *deleteCred); err != nil {
			logger.Error("managing credential", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		logger.Error("loading config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	credential.FillConfig(cfg)

	st, err := store.NewSQLiteStore(cfg.Digest.DBPath)
	if err != nil {
		logger.Error("opening run-history database", "path", cfg.Digest.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	p := pipeline.New(
		mailsource.New(cfg.Mail, logger),
		news.NewClient(cfg.News),
		weather.NewClient(cfg.Weather),
		digest.NewDispatcher(cfg.SMTP),
		st,
		cfg,
		logger,
	)

	if *once {
		if _, err := p.Run(context.Background()); err != nil {
			logger.Error("digest run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	interval := time.Duration(cfg.Digest.IntervalSec) * time.Second
	scheduler := sched.New(p, interval, logger)
	scheduler.Start()
	logger.Info("scheduler started", "interval", interval.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	scheduler.Stop()
}

// manageCredential stores or removes one keyring secret. The value for a set
// is read from stdin so it never appears in the process argument list.
func manageCredential(setKey, deleteKey string) error {
	if deleteKey != "" {
		if !credential.KnownKey(deleteKey) {
			return fmt.Errorf("unknown credential key %q", deleteKey)
		}
		return credential.Delete(deleteKey)
	}

	if !credential.KnownKey(setKey) {
		return fmt.Errorf("unknown credential key %q", setKey)
	}

	value, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading credential value: %w", err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("empty credential value for %q", setKey)
	}

	return credential.Set(setKey, value)
}
