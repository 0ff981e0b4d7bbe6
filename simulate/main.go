// Command simulate emulates a Hitag-S transponder over a serial link to
// an external modulation device, answering reader frames against an
// in-memory tag image (LF_HITAGS_SIMULATE).
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TheWaffleCopter/proxmark3/internal/config"
	"github.com/TheWaffleCopter/proxmark3/pkg/hitags"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file (required)")
		dataFile   = flag.String("data", "", "path to a 256-byte hex-encoded memory image (default: built-in factory image)")
		verbose    = flag.Bool("v", false, "enable debug logging")
		logFormat  = flag.String("log-format", "text", "log format: text or json")
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

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		flag.Usage()
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	image := hitags.DefaultImage()
	if *dataFile != "" {
		raw, err := os.ReadFile(*dataFile)
		if err != nil {
			slog.Error("read data file", "error", err)
			os.Exit(1)
		}
		decoded, err := hex.DecodeString(string(trimNewline(raw)))
		if err != nil {
			slog.Error("decode data file", "error", err)
			os.Exit(1)
		}
		if len(decoded) != hitags.MaxPages*hitags.PageSize {
			slog.Error("data file wrong size", "want", hitags.MaxPages*hitags.PageSize, "got", len(decoded))
			os.Exit(1)
		}
		for p := 0; p < hitags.MaxPages; p++ {
			copy(image.Pages[p][:], decoded[p*hitags.PageSize:(p+1)*hitags.PageSize])
		}
		slog.Info("loaded tag memory", "file", *dataFile)
	} else {
		slog.Info("using built-in factory tag image")
	}

	tag := hitags.NewTag(image)

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

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		transport.Close()
		os.Exit(0)
	}()

	slog.Info("starting Hitag-S simulation", "uid", fmt.Sprintf("%08X", image.UID()), "max_page", image.MaxPage())
	for {
		rx, err := transport.Receive(1 * time.Second)
		if err != nil {
			slog.Warn("receive error", "error", err)
			continue
		}
		reply := tag.HandleFrame(rx)
		if reply == nil {
			continue
		}
		if err := transport.Send(reply, 0); err != nil {
			slog.Warn("send error", "error", err)
		}
	}
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
