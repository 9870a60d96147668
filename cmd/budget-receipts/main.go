package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/budget-receipts/internal/extract"
	"github.com/zombor/budget-receipts/internal/receipt"
	"github.com/zombor/budget-receipts/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type aiSettings struct {
	geminiKey   string
	geminiModel string
	ollamaURL   string
	ollamaModel string
}

// newScanner builds a scanner by name. An empty name or "none" yields nil.
func newScanner(name string, languages []string, ai aiSettings, extractor *extract.Extractor) (scanning.Scanner, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "tesseract":
		slog.Info("Initializing Tesseract scanner...", "languages", languages)
		engine, err := scanning.NewTesseract(languages...)
		if err != nil {
			return nil, err
		}
		return scanning.NewLocal(engine, extractor), nil
	case "gemini":
		apiKey := ai.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini scanner...", "model", ai.geminiModel)
		return scanning.NewGemini(apiKey, ai.geminiModel, extractor)
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", ai.ollamaURL, "model", ai.ollamaModel)
		return scanning.NewOllama(ai.ollamaURL, ai.ollamaModel, extractor)
	default:
		return nil, fmt.Errorf("invalid scanner type %q, valid: tesseract, gemini, ollama", name)
	}
}

// limitFlags registers a flag per extraction threshold and returns a function
// reading the parsed values
func limitFlags(fs *ff.FlagSet) func() extract.Limits {
	var (
		maxAmount    = fs.Float64Long("max-amount", extract.DefaultLimits.MaxAmount, "Largest accepted receipt total")
		fallbackMax  = fs.Float64Long("fallback-max-amount", extract.DefaultLimits.FallbackMaxAmount, "Largest total taken from an unlabelled price")
		maxItemPrice = fs.Float64Long("max-item-price", extract.DefaultLimits.MaxItemPrice, "Largest accepted line item price")
		qtyTolerance = fs.Float64Long("quantity-tolerance", extract.DefaultLimits.QuantityTolerance, "Allowed relative gap between quantity x unit price and the line total")
		minYear      = fs.IntLong("min-year", extract.DefaultLimits.MinYear, "Earliest accepted receipt year")
		maxYear      = fs.IntLong("max-year", extract.DefaultLimits.MaxYear, "Latest accepted receipt year")
	)
	return func() extract.Limits {
		return extract.Limits{
			MaxAmount:         *maxAmount,
			FallbackMaxAmount: *fallbackMax,
			MaxItemPrice:      *maxItemPrice,
			QuantityTolerance: *qtyTolerance,
			MinYear:           *minYear,
			MaxYear:           *maxYear,
		}
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("budget-receipts")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		dbPath        = fs.StringLong("db", "budget-receipts.db", "Database file path")
		storageType   = fs.StringLong("storage", "local", "Receipt storage: 'local' or 's3'")
		storagePath   = fs.StringLong("storage-path", "./receipts", "Local storage directory path")
		s3Endpoint    = fs.StringLong("s3-endpoint", "localhost:9000", "S3 endpoint (host:port)")
		s3AccessKey   = fs.StringLong("s3-access-key", "", "S3 access key")
		s3SecretKey   = fs.StringLong("s3-secret-key", "", "S3 secret key")
		s3Bucket      = fs.StringLong("s3-bucket", "receipts", "S3 bucket name")
		s3Region      = fs.StringLong("s3-region", "us-east-1", "S3 region")
		s3SSL         = fs.BoolLong("s3-ssl", "Use TLS for S3")
		scannerType   = fs.StringLong("scanner", "tesseract", "Primary scanner: 'tesseract', 'gemini' or 'ollama'")
		fallbackType  = fs.StringLong("fallback", "none", "Fallback scanner: 'none', 'gemini' or 'ollama'")
		minConfidence = fs.IntLong("min-confidence", 60, "Confidence below which the fallback scanner is tried")
		languages     = fs.StringLong("ocr-languages", "tur,eng", "Comma separated Tesseract languages")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		authUser      = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass      = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion   = fs.BoolLong("version", "Show version information")
	)
	limits := limitFlags(fs)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BUDGET_RECEIPTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx := context.Background()

	extractor := extract.New(limits())

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ai := aiSettings{
		geminiKey:   *geminiKey,
		geminiModel: *geminiModel,
		ollamaURL:   *ollamaURL,
		ollamaModel: *ollamaModel,
	}
	langs := strings.Split(*languages, ",")

	scanner, err := newScanner(*scannerType, langs, ai, extractor)
	if err == nil && scanner == nil {
		err = fmt.Errorf("a primary scanner is required")
	}
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", *scannerType, "error", err)
		os.Exit(1)
	}
	defer scanner.Close()

	fallback, err := newScanner(*fallbackType, langs, ai, extractor)
	if err != nil {
		slog.Error("Failed to initialize fallback scanner", "type", *fallbackType, "error", err)
		os.Exit(1)
	}
	if fallback != nil {
		defer fallback.Close()
	}

	slog.Info("Initializing storage...", "type", *storageType)
	var store receipt.Storage
	switch *storageType {
	case "local":
		store, err = receipt.NewLocalStorage(*storagePath)
	case "s3":
		store, err = receipt.NewS3Storage(ctx, receipt.S3Config{
			Endpoint:  *s3Endpoint,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
			Bucket:    *s3Bucket,
			Region:    *s3Region,
			UseSSL:    *s3SSL,
		})
	default:
		err = fmt.Errorf("invalid storage type %q, valid: local, s3", *storageType)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	cfg := receipt.Config{
		Source:         *scannerType,
		Fallback:       fallback,
		FallbackSource: *fallbackType,
		MinConfidence:  *minConfidence,
		Extractor:      extractor,
	}
	receiptService := receipt.NewService(db, scanner, store, cfg)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
