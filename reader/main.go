// Command reader drives a Hitag-S tag over a serial link: select, an
// optional authentication, and a read or write (LF_HITAGS_UID / READ /
// WRITE).
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/TheWaffleCopter/proxmark3/internal/config"
	"github.com/TheWaffleCopter/proxmark3/pkg/hitags"
)

func main() {
	var (
		configPath     = flag.String("config", "", "path to YAML config file (required)")
		op             = flag.String("op", "uid", "operation: uid, read, write")
		mode           = flag.String("mode", "", "framing mode override: STD, ADV1, ADV2, FADV (default: config runtime.default_mode)")
		auth           = flag.String("auth", "plain", "authentication method: plain, key, challenge, 82xx")
		nrAr           = flag.String("nrar", "", "16-hex-char NrAr pair for -auth=challenge")
		page           = flag.Int("page", 0, "page address for read/write")
		count          = flag.Int("count", 1, "page count for read (0 = through last page)")
		writeData      = flag.String("write-data", "", "8-hex-char page data for -op=write")
		tearOff        = flag.Bool("tear-off", false, "abort -op=write after the ack but before the data frame, to exercise ETEAROFF recovery (requires runtime.tear_off_enabled in config)")
		promptPassword = flag.Bool("prompt-password", false, "read the 82xx password from the terminal without echo")
		verbose        = flag.Bool("v", false, "enable debug logging")
		logFormat      = flag.String("log-format", "text", "log format: text or json")
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

	key, err := loadKeyHexFile(cfg.Keys.KeyFile)
	if err != nil {
		slog.Error("load key file", "error", err)
		os.Exit(1)
	}

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
	if *tearOff {
		if !cfg.Runtime.TearOffEnabled {
			fmt.Fprintln(os.Stderr, "Error: -tear-off requires runtime.tear_off_enabled: true in config")
			os.Exit(1)
		}
		r.TearOff = func() bool { return true }
	}

	if err := r.Select(frameMode); err != nil {
		slog.Error("select failed", "error", err)
		os.Exit(1)
	}

	var password [4]byte
	if *auth == "82xx" {
		if *promptPassword {
			fmt.Fprint(os.Stderr, "82xx password (4 bytes, hex): ")
			pw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				slog.Error("read password", "error", err)
				os.Exit(1)
			}
			b, err := hex.DecodeString(string(pw))
			if err != nil || len(b) != 4 {
				fmt.Fprintln(os.Stderr, "Error: password must be 8 hex characters")
				os.Exit(1)
			}
			copy(password[:], b)
		} else if cfg.Keys.PasswordFile != "" {
			b, err := loadKeyHexFile(cfg.Keys.PasswordFile)
			if err != nil || len(b) != 4 {
				slog.Error("load password file", "error", err)
				os.Exit(1)
			}
			copy(password[:], b)
		}
	}

	var keyArr [6]byte
	copy(keyArr[:], key)

	var nrArArr [8]byte
	if *nrAr != "" {
		b, err := hex.DecodeString(*nrAr)
		if err != nil || len(b) != 8 {
			fmt.Fprintln(os.Stderr, "Error: -nrar must be 16 hex characters")
			os.Exit(1)
		}
		copy(nrArArr[:], b)
	}

	var method hitags.AuthMethod
	switch *auth {
	case "plain":
		method = hitags.AuthPlain
	case "key":
		method = hitags.AuthKey
	case "challenge":
		method = hitags.AuthChallenge
	case "82xx":
		method = hitags.Auth82xx
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown -auth %q\n", *auth)
		os.Exit(1)
	}

	if err := r.Authenticate(method, keyArr, hitags.DefaultNonce, nrArArr, password); err != nil {
		slog.Error("authenticate failed", "error", err)
		os.Exit(1)
	}

	switch *op {
	case "uid":
		printUID(r.SelectedUID())

	case "read":
		results, err := r.Read(*page, *count)
		if err != nil {
			slog.Error("read failed", "error", err)
			os.Exit(1)
		}
		printPages(results)

	case "write":
		data, err := hex.DecodeString(*writeData)
		if err != nil || len(data) != hitags.PageSize {
			fmt.Fprintln(os.Stderr, "Error: -write-data must be 8 hex characters")
			os.Exit(1)
		}
		var pg hitags.Page
		copy(pg[:], data)
		if err := r.Write(*page, pg); err != nil {
			if hitags.IsTearOff(err) {
				slog.Error("write aborted by tear-off hook", "page", *page)
			} else {
				slog.Error("write failed", "error", err)
			}
			os.Exit(1)
		}
		fmt.Printf("wrote page %d\n", *page)

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown -op %q\n", *op)
		os.Exit(1)
	}
}

func loadKeyHexFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no key file configured")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := string(raw)
	for len(trimmed) > 0 && (trimmed[len(trimmed)-1] == '\n' || trimmed[len(trimmed)-1] == '\r') {
		trimmed = trimmed[:len(trimmed)-1]
	}
	return hex.DecodeString(trimmed)
}
