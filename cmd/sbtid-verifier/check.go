package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonbound/sbtid-verifier/internal/config"
	"github.com/tonbound/sbtid-verifier/internal/ton"
)

// checkTimeout bounds one-shot CLI checks end to end.
const checkTimeout = time.Minute

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <identity>",
		Short: "Run one payment check and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args[0])
		},
	}
}

func runVerify(rawIdentity string) error {
	identity, ok := new(big.Int).SetString(rawIdentity, 10)
	if !ok {
		return fmt.Errorf("identity must be a decimal integer, got %q", rawIdentity)
	}

	svc, cleanup, err := setupCheck()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	result, err := svc.Verify(ctx, identity)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <identity>",
		Short: "Print the item address the collection derives for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(args[0])
		},
	}
}

func runDerive(rawIdentity string) error {
	identity, ok := new(big.Int).SetString(rawIdentity, 10)
	if !ok {
		return fmt.Errorf("identity must be a decimal integer, got %q", rawIdentity)
	}

	svc, cleanup, err := setupCheck()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	item, err := svc.DeriveItemAddress(ctx, identity)
	if err != nil {
		return err
	}
	if item.IsZero() {
		fmt.Println("collection reports no item for this identity")
		return nil
	}

	fmt.Println("friendly:", item.String())
	fmt.Println("raw:     ", item.StringRaw())
	return nil
}

func newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address <address>",
		Short: "Parse an address and print its canonical forms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := ton.ParseAddress(args[0])
			if err != nil {
				return err
			}
			fmt.Println("friendly: ", addr.String())
			fmt.Println("raw:      ", addr.StringRaw())
			fmt.Println("workchain:", addr.Workchain())
			return nil
		},
	}
}

// setupCheck loads config and builds the verifier for one-shot commands.
// Logging goes to stderr at error level so stdout stays parseable.
func setupCheck() (verifier, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client, svc, err := buildVerifier(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return svc, client.Close, nil
}
