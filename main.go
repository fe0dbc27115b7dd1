package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tracker "driver-client/cmd/tracker"
	"driver-client/internal/cli"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, modeArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {

	case cli.ModeTrack:
		fs := flag.NewFlagSet(cli.ModeTrack, flag.ContinueOnError)
		cfgPath := fs.String("config", "./config/config.yaml", "Path to the YAML config file")
		samples := fs.String("samples", "-", "NDJSON location-fix file to replay ('-' for stdin)")
		interval := fs.Duration("replay-interval", 0, "Pacing between replayed fixes (0 = as fast as consumed)")
		cli.AttachUsage(fs, cli.ModeTrack)

		if err := fs.Parse(modeArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if err := tracker.Run(ctx, tracker.Options{
			ConfigPath:     *cfgPath,
			SamplesPath:    *samples,
			ReplayInterval: *interval,
		}); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeToken:
		fs := flag.NewFlagSet(cli.ModeToken, flag.ContinueOnError)
		secret := fs.String("secret", "", "HS256 signing secret of the dev backend")
		driverID := fs.String("driver-id", "", "Driver id to embed as the token subject")
		ttl := fs.Duration("ttl", 2*time.Hour, "Token lifetime")
		cli.AttachUsage(fs, cli.ModeToken)

		if err := fs.Parse(modeArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if *secret == "" {
			fmt.Fprintln(os.Stderr, "Error: --secret is required")
			fs.Usage()
			os.Exit(2)
		}
		token, err := cli.GenerateDriverToken(*secret, *driverID, *ttl)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		fmt.Println(token)

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}
