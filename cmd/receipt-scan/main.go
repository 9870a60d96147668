package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/budget-receipts/internal/extract"
	"github.com/zombor/budget-receipts/internal/scanning"
)

func main() {
	fs := ff.NewFlagSet("receipt-scan")
	var (
		textOnly  = fs.BoolLong("text", "Treat the input as already recognized receipt text")
		languages = fs.StringLong("ocr-languages", "tur,eng", "Comma separated Tesseract languages")
		verbose   = fs.BoolLong("verbose", "Log scan progress to stderr")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BUDGET_RECEIPTS"),
	); err != nil || len(fs.GetArgs()) != 1 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs, "receipt-scan [FLAGS] <file>"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	path := fs.GetArgs()[0]
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read input", "path", path, "error", err)
		os.Exit(1)
	}

	var result *extract.ReceiptData
	if *textOnly {
		result = extract.Extract(string(data), -1)
	} else {
		engine, err := scanning.NewTesseract(strings.Split(*languages, ",")...)
		if err != nil {
			slog.Error("Failed to initialize Tesseract", "error", err)
			os.Exit(1)
		}
		scanner := scanning.NewLocal(engine, nil)
		defer scanner.Close()

		progress := func(pct int, status string) {
			slog.Debug("Scan progress", "progress", pct, "status", status)
		}
		result, err = scanner.ScanReceipt(context.Background(), data, mime.TypeByExtension(filepath.Ext(path)), progress)
		if err != nil {
			slog.Error("Scan failed", "path", path, "error", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		slog.Error("Failed to encode result", "error", err)
		os.Exit(1)
	}
}
