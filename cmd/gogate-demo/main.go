package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// zapDelivery logs retractions instead of talking to a real chat transport.
type zapDelivery struct {
	log *zap.Logger
}

func (d *zapDelivery) Retract(_ context.Context, ref goGate.MessageRef) error {
	d.log.Info("retract message",
		zap.Int64("chat_id", ref.ChatID),
		zap.Int64("message_id", ref.MessageID),
	)
	return nil
}

func main() {
	var (
		envFile   = flag.String("env-file", ".env", "env file to load; missing files are ignored")
		auditPath = flag.String("audit", "unlocks.csv", "CSV audit log path; empty disables auditing")
	)
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("env file not loaded", zap.String("path", *envFile), zap.Error(err))
	}

	ctx := context.Background()

	addr := os.Getenv("REDIS_ADDR")
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			log.Fatal("failed to start miniredis", zap.Error(err))
		}
		addr = mr.Addr()
		cleanup = mr.Close
		log.Info("using miniredis", zap.String("addr", addr))
	} else {
		cleanup = func() {}
		log.Info("using redis", zap.String("addr", addr))
	}
	defer cleanup()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	cfg, err := configFromEnv()
	if err != nil {
		log.Fatal("bad configuration", zap.Error(err))
	}

	builder := goGate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDelivery(&zapDelivery{log: log}).
		WithMetricsEnabled(true)

	if *auditPath != "" {
		f, err := os.OpenFile(*auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal("failed to open audit log", zap.String("path", *auditPath), zap.Error(err))
		}
		defer func() { _ = f.Close() }()
		builder = builder.WithAuditSink(goGate.NewCSVWriterSink(f))
		cfg.Audit.Enabled = true
		builder = builder.WithConfig(cfg)
	}

	engine, err := builder.Build()
	if err != nil {
		log.Fatal("failed to build engine", zap.Error(err))
	}
	defer engine.Close()

	fmt.Println("commands: start <user> | answer <user> <text> | check <token> | revoke <batch> | stats <user> | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 3)
		switch fields[0] {
		case "start":
			if len(fields) < 2 {
				fmt.Println("usage: start <user>")
				continue
			}
			result, err := engine.RequestChallenge(ctx, fields[1])
			if err != nil {
				var cooldown *goGate.CooldownError
				if errors.As(err, &cooldown) {
					fmt.Printf("cooldown active, retry in %ds\n", cooldown.SecondsRemaining)
					continue
				}
				log.Error("request challenge failed", zap.Error(err))
				continue
			}
			fmt.Printf("challenge: %s (expires %s)\n", result.Prompt, result.ExpiresAt.Format(time.Kitchen))
		case "answer":
			if len(fields) < 3 {
				fmt.Println("usage: answer <user> <text>")
				continue
			}
			result, err := engine.SubmitAnswer(ctx, fields[1], fields[2])
			if err != nil {
				log.Error("submit answer failed", zap.Error(err))
				continue
			}
			printSubmitResult(result)
		case "check":
			if len(fields) < 2 {
				fmt.Println("usage: check <token>")
				continue
			}
			info, err := engine.ValidateLink(ctx, fields[1])
			if err != nil {
				fmt.Printf("invalid: %v\n", err)
				continue
			}
			fmt.Printf("valid: resource=%s batch=%s expires=%s\n",
				info.Resource, info.BatchID, info.ExpiresAt.Format(time.Kitchen))
		case "revoke":
			if len(fields) < 2 {
				fmt.Println("usage: revoke <batch>")
				continue
			}
			if err := engine.RevokeGrant(ctx, fields[1]); err != nil {
				log.Error("revoke grant failed", zap.Error(err))
				continue
			}
			fmt.Println("revoked")
		case "stats":
			if len(fields) < 2 {
				fmt.Println("usage: stats <user>")
				continue
			}
			stats, err := engine.Stats(ctx, fields[1])
			if err != nil {
				fmt.Printf("denied: %v\n", err)
				continue
			}
			fmt.Printf("unlocks=%d active_challenges=%d active_links=%d max_attempts=%d cooldown=%s link_ttl=%s\n",
				stats.TotalUnlocks, stats.ActiveChallenges, stats.ActiveLinks,
				stats.MaxAttempts, stats.CooldownWindow, stats.LinkTTL)
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command")
		}
	}
}

func printSubmitResult(result *goGate.SubmitResult) {
	switch result.Outcome {
	case goGate.OutcomeCorrect:
		fmt.Println("correct, links:")
		for _, l := range result.Grant.Links {
			fmt.Printf("  %s: %s\n", l.Resource, l.URL)
		}
		fmt.Printf("batch=%s expires=%s\n", result.Grant.BatchID, result.Grant.ExpiresAt.Format(time.Kitchen))
	case goGate.OutcomeIncorrect:
		fmt.Printf("wrong, %d attempts left\n", result.AttemptsLeft)
	case goGate.OutcomeNotANumber:
		fmt.Printf("not a number, %d attempts left\n", result.AttemptsLeft)
	case goGate.OutcomeAttemptsExhausted:
		fmt.Println("attempts exhausted")
		if result.NextPrompt != "" {
			fmt.Printf("new challenge: %s\n", result.NextPrompt)
		}
	case goGate.OutcomeNoChallenge:
		fmt.Println("no active challenge, use start first")
	}
}

func configFromEnv() (goGate.Config, error) {
	cfg := goGate.DefaultConfig()

	if v := os.Getenv("MAIN_LINK"); v != "" {
		cfg.Resources[0].BaseURL = v
	}
	if v := os.Getenv("VOUCH_LINK"); v != "" && len(cfg.Resources) > 1 {
		cfg.Resources[1].BaseURL = v
	}
	if v := os.Getenv("ADMIN_ID"); v != "" {
		cfg.Admin.StatsUserID = v
	}
	if v := os.Getenv("LINK_EXPIRY_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("LINK_EXPIRY_SECONDS: %w", err)
		}
		cfg.Token.TTL = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("COOLDOWN_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("COOLDOWN_SECONDS: %w", err)
		}
		cfg.Cooldown.Window = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("MAX_ATTEMPTS: %w", err)
		}
		cfg.Verification.MaxAttempts = n
	}

	return cfg, nil
}
