// Command sweep runs a batch of NrAr challenges against a tag over a
// serial link, reselecting between attempts and observing the
// mandatory field-off pause on failure (LF_HITAGS_TEST_TRACES).
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/TheWaffleCopter/proxmark3/internal/config"
	"github.com/TheWaffleCopter/proxmark3/pkg/hitags"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to YAML config file (required)")
		challengeFile = flag.String("challenges", "", "path to a file of one 16-hex-char NrAr pair per line (required)")
		mode          = flag.String("mode", "", "framing mode override: STD, ADV1, ADV2, FADV")
		verbose       = flag.Bool("v", false, "enable debug logging")
		logFormat     = flag.String("log-format", "text", "log format: text or json")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}

	if *configPath == "" || *challengeFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -config and -challenges are required")
		flag.Usage()
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	frameMode := hitags.ModeADV1
	modeName := *mode
	if modeName == "" {
		modeName = cfg.Runtime.DefaultMode
	}
	switch modeName {
	case "STD":
		frameMode = hitags.ModeSTD
	case "ADV1", "":
		frameMode = hitags.ModeADV1
	case "ADV2":
		frameMode = hitags.ModeADV2
	case "FADV":
		frameMode = hitags.ModeFADV
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown -mode %q\n", modeName)
		os.Exit(1)
	}

	challenges, err := loadChallenges(*challengeFile)
	if err != nil {
		slog.Error("load challenges", "error", err)
		os.Exit(1)
	}
	slog.Info("loaded challenges", "count", len(challenges))

	transport, err := hitags.OpenSerialTransport(cfg.Runtime.SerialDevice, cfg.Runtime.BaudRate)
	if err != nil {
		slog.Error("open serial transport", "error", err)
		os.Exit(1)
	}
	defer transport.Close()
	if cfg.Runtime.EdgeThreshold != nil {
		if err := transport.SetEdgeThreshold(*cfg.Runtime.EdgeThreshold); err != nil {
			slog.Error("set edge threshold", "error", err)
			os.Exit(1)
		}
	}

	r := hitags.NewReader(transport)

	succeeded := 0
	for i, nrAr := range challenges {
		results, err := r.ChallengeSweep(frameMode, [][8]byte{nrAr})
		if err != nil {
			slog.Error("challenge sweep failed", "index", i, "error", err)
			os.Exit(1)
		}
		result := results[0]
		fmt.Printf("%d: %s -> %v\n", i, hex.EncodeToString(result.NrAr[:]), result.Success)
		if result.Success {
			succeeded++
		} else {
			time.Sleep(hitags.FieldOffPause)
		}
	}
	fmt.Printf("%d/%d succeeded\n", succeeded, len(challenges))
}

func loadChallenges(path string) ([][8]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out [][8]byte
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		b, err := hex.DecodeString(line)
		if err != nil || len(b) != 8 {
			return nil, fmt.Errorf("invalid NrAr line %q", line)
		}
		var nrAr [8]byte
		copy(nrAr[:], b)
		out = append(out, nrAr)
	}
	return out, sc.Err()
}
