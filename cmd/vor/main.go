package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dukerupert/vor/internal"
	"github.com/dukerupert/vor/internal/standardize"
	"github.com/dukerupert/vor/internal/tabular"
	"github.com/dukerupert/vor/internal/usps"
)

func run() error {
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	inPath := flag.String("in", "", "input CSV file (default stdin)")
	outPath := flag.String("out", "", "output CSV file (default stdout)")
	audit := flag.Bool("audit", cfg.Batch.IncludeAudit, "append attempt/confirmation/note columns")
	flag.Parse()

	// Logs go to stderr so stdout stays usable for CSV output.
	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	var in io.Reader = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	table, err := tabular.Load(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	logger.Info("input loaded", "records", len(table.Records))

	validator, err := usps.NewClient(usps.Config{
		Credentials: usps.Credentials{
			ClientID:     cfg.USPS.ClientID,
			ClientSecret: cfg.USPS.ClientSecret,
			RefreshToken: cfg.USPS.RefreshToken,
		},
		BaseURL:    cfg.USPS.BaseURL,
		TokenURL:   cfg.USPS.TokenURL,
		Timeout:    cfg.USPS.Timeout,
		Pacing:     cfg.USPS.Pacing,
		MaxRetries: cfg.USPS.MaxRetries,
		Logger:     logger.With("component", "usps"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize address validation client: %w", err)
	}

	p := standardize.NewProcessor(validator, *audit, logger, nil)
	table, summary, err := p.Process(context.Background(), table)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := tabular.Write(out, table); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	logger.Info("done",
		"records", summary.Total,
		"validated_address1", summary.ValidatedAddress1,
		"validated_address2", summary.ValidatedAddress2,
		"fallback", summary.Fallback,
	)

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
