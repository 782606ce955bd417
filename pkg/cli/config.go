package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kairos/pkg/adapter"
	"github.com/m-mizutani/kairos/pkg/journal"
	"github.com/m-mizutani/kairos/pkg/model"
	"github.com/m-mizutani/kairos/pkg/repository"
	"github.com/m-mizutani/kairos/pkg/utils/logging"
	oaioption "github.com/openai/openai-go/option"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"
)

const (
	backendBolt      = "bolt"
	backendSQLite    = "sqlite"
	backendFirestore = "firestore"
	backendGCS       = "gcs"
	backendMemory    = "memory"

	llmGemini = "gemini"
	llmOpenAI = "openai"
)

// config holds configuration values
type config struct {
	logLevel  string
	logFormat string

	// Storage
	backend     string
	dbPath      string
	project     string
	database    string
	bucket      string
	prefix      string
	credentials string
	tuningPath  string

	// LLM
	llm            string
	geminiProject  string
	geminiLocation string
	geminiModel    string
	openAIAPIKey   string
	openAIModel    string
	openAIBaseURL  string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("KAIROS_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("KAIROS_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "backend",
			Aliases:     []string{"b"},
			Usage:       "Journal storage backend (bolt, sqlite, firestore, gcs, memory)",
			Value:       backendBolt,
			Sources:     cli.EnvVars("KAIROS_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "db-path",
			Usage:       "Database file for bolt and sqlite backends (default: ~/.kairos/kairos.<backend>)",
			Sources:     cli.EnvVars("KAIROS_DB_PATH"),
			Destination: &cfg.dbPath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for the gcs backend",
			Sources:     cli.EnvVars("KAIROS_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "prefix",
			Usage:       "Object name prefix for the gcs backend",
			Value:       "kairos/",
			Sources:     cli.EnvVars("KAIROS_PREFIX"),
			Destination: &cfg.prefix,
		},
		&cli.StringFlag{
			Name:        "credentials",
			Usage:       "Google Cloud credentials file",
			Sources:     cli.EnvVars("GOOGLE_APPLICATION_CREDENTIALS"),
			Destination: &cfg.credentials,
		},
		&cli.StringFlag{
			Name:        "tuning",
			Usage:       "YAML file overriding echo and context tuning",
			Sources:     cli.EnvVars("KAIROS_TUNING"),
			Destination: &cfg.tuningPath,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm",
			Usage:       "Text generation backend (gemini, openai)",
			Value:       llmGemini,
			Sources:     cli.EnvVars("KAIROS_LLM"),
			Destination: &cfg.llm,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openAIAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "OpenAI model name",
			Sources:     cli.EnvVars("OPENAI_MODEL"),
			Destination: &cfg.openAIModel,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "OpenAI compatible API endpoint",
			Sources:     cli.EnvVars("OPENAI_BASE_URL"),
			Destination: &cfg.openAIBaseURL,
		},
	}
}

// withLogger attaches a logger of the configured level to ctx
func (cfg *config) withLogger(ctx context.Context) context.Context {
	var opts []logging.Option
	if cfg.logFormat == "json" {
		opts = append(opts, logging.WithJSON())
	}
	logger := logging.New(cfg.logLevel, os.Stderr, opts...)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

func (cfg *config) clientOptions() []option.ClientOption {
	if cfg.credentials == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.credentials)}
}

func (cfg *config) resolveDBPath() (string, error) {
	if cfg.dbPath != "" {
		return cfg.dbPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", goerr.Wrap(err, "failed to find home directory, set --db-path")
	}
	dir := filepath.Join(home, ".kairos")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", goerr.Wrap(err, "failed to create data directory", goerr.V("dir", dir))
	}
	return filepath.Join(dir, "kairos."+cfg.backend), nil
}

// newKV creates the configured storage backend. The returned function
// releases it.
func (cfg *config) newKV(ctx context.Context) (repository.KV, func(), error) {
	nop := func() {}

	switch cfg.backend {
	case backendMemory:
		return repository.NewMemory(), nop, nil

	case backendBolt, backendSQLite:
		path, err := cfg.resolveDBPath()
		if err != nil {
			return nil, nil, err
		}
		if cfg.backend == backendBolt {
			db, err := repository.NewBolt(path)
			if err != nil {
				return nil, nil, err
			}
			return db, func() { closeLogged(ctx, db.Close) }, nil
		}
		db, err := repository.NewSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { closeLogged(ctx, db.Close) }, nil

	case backendFirestore:
		if cfg.project == "" {
			return nil, nil, goerr.New("project is required for firestore backend")
		}
		if cfg.database == "" {
			return nil, nil, goerr.New("database is required for firestore backend")
		}
		db, err := repository.NewFirestore(ctx, cfg.project, cfg.database, cfg.clientOptions())
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return db, func() { closeLogged(ctx, db.Close) }, nil

	case backendGCS:
		if cfg.bucket == "" {
			return nil, nil, goerr.New("bucket is required for gcs backend")
		}
		storage, err := adapter.NewStorage(ctx, cfg.bucket, cfg.clientOptions()...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create storage")
		}
		db := repository.NewCloudStorage(storage, cfg.prefix)
		return db, func() { closeLogged(ctx, db.Close) }, nil

	default:
		return nil, nil, goerr.New("unsupported backend",
			goerr.V("backend", cfg.backend),
			goerr.V("supported", []string{backendBolt, backendSQLite, backendFirestore, backendGCS, backendMemory}))
	}
}

func closeLogged(ctx context.Context, closeFn func() error) {
	if err := closeFn(); err != nil {
		logging.From(ctx).Warn("failed to close storage", "error", err)
	}
}

// openJournal wraps kv with the journal and loads it
func (cfg *config) openJournal(ctx context.Context, kv repository.KV) *journal.Journal {
	j := journal.New(journal.NewStore(kv))
	j.Open(ctx)
	return j
}

// newGenerator creates the configured text generation backend
func (cfg *config) newGenerator(ctx context.Context) (adapter.Generator, error) {
	switch cfg.llm {
	case llmGemini:
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
		var opts []adapter.GeminiOption
		if cfg.geminiModel != "" {
			opts = append(opts, adapter.WithGenerativeModel(cfg.geminiModel))
		}
		gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini client")
		}
		return adapter.NewGeminiGenerator(gemini), nil

	case llmOpenAI:
		if cfg.openAIAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		var reqOpts []oaioption.RequestOption
		if cfg.openAIBaseURL != "" {
			reqOpts = append(reqOpts, oaioption.WithBaseURL(cfg.openAIBaseURL))
		}
		var genOpts []adapter.OpenAIOption
		if cfg.openAIModel != "" {
			genOpts = append(genOpts, adapter.WithOpenAIModel(cfg.openAIModel))
		}
		return adapter.NewOpenAI(cfg.openAIAPIKey, reqOpts, genOpts...), nil

	default:
		return nil, goerr.New("unsupported llm",
			goerr.V("llm", cfg.llm),
			goerr.V("supported", []string{llmGemini, llmOpenAI}))
	}
}

// loadTuning reads the tuning file over the defaults
func (cfg *config) loadTuning() (model.Tuning, error) {
	tuning := model.DefaultTuning()
	if cfg.tuningPath == "" {
		return tuning, nil
	}

	raw, err := os.ReadFile(cfg.tuningPath)
	if err != nil {
		return tuning, goerr.Wrap(err, "failed to read tuning file", goerr.V("path", cfg.tuningPath))
	}
	if err := yaml.Unmarshal(raw, &tuning); err != nil {
		return tuning, goerr.Wrap(err, "failed to parse tuning file", goerr.V("path", cfg.tuningPath))
	}
	if err := tuning.Validate(); err != nil {
		return tuning, goerr.Wrap(err, "invalid tuning", goerr.V("path", cfg.tuningPath))
	}
	return tuning, nil
}
