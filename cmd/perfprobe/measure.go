package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"perfprobe/internal/core/domain"
	"perfprobe/pkg/client"
	"perfprobe/pkg/config"
	"perfprobe/pkg/retry"
)

// envelope is satisfied by both the local and the remote result types.
type envelope interface {
	Failed() bool
}

// errMeasurementFailed signals exit code 1 after the envelope was printed.
var errMeasurementFailed = errors.New("measurement failed")

var (
	headful        bool
	measureTimeout time.Duration
	serverURL      string

	measureCmd = &cobra.Command{
		Use:   "measure <url>",
		Short: "Measure a single page and print the result as JSON",
		Example: `  perfprobe measure example.com
  perfprobe measure https://example.com --headful --timeout 45s
  perfprobe measure example.com --server http://perfprobe:5000`,
		Args: cobra.ExactArgs(1),
		RunE: runMeasure,
	}
)

func init() {
	measureCmd.Flags().BoolVar(&headful, "headful", false, "Show the browser window")
	measureCmd.Flags().DurationVarP(&measureTimeout, "timeout", "t", 0, "Navigation timeout (default browser.navigation_timeout)")
	measureCmd.Flags().StringVar(&serverURL, "server", "", "Measure through a running perfprobe service instead of a local browser")
}

func runMeasure(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var result envelope
	if serverURL != "" {
		result, err = measureRemote(ctx, args[0])
	} else {
		result, err = measureLocal(ctx, cfg, args[0])
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if result.Failed() {
		return errMeasurementFailed
	}
	return nil
}

func measureLocal(ctx context.Context, cfg *config.Config, url string) (*domain.MeasurementResult, error) {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close(context.Background())

	return a.service.Measure(ctx, domain.MeasurementRequest{
		URL:      url,
		Headless: cfg.Browser.Headless && !headful,
		Timeout:  measureTimeout,
	})
}

func measureRemote(ctx context.Context, url string) (*client.Result, error) {
	req := client.MeasureRequest{URL: url, Timeout: measureTimeout}
	if headful {
		headless := false
		req.Headless = &headless
	}
	return client.New(serverURL, client.WithRetry(retry.DefaultConfig())).Measure(ctx, req)
}
