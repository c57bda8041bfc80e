package application

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Jbase16/AraUltra/internal/ai"
	"github.com/Jbase16/AraUltra/internal/enrich"
	"github.com/Jbase16/AraUltra/internal/evidence"
	"github.com/Jbase16/AraUltra/internal/report"
	"github.com/Jbase16/AraUltra/internal/risk"
	"github.com/Jbase16/AraUltra/internal/scanner"
	"github.com/Jbase16/AraUltra/internal/store"
)

// Container holds every store and service for one application instance.
// Nothing in this codebase lives in a package-level singleton; construction
// and teardown happen here.
type Container struct {
	// Stores
	Findings  *store.FindingsStore
	Issues    *store.IssuesStore
	Killchain *store.KillchainStore
	Evidence  *evidence.Store

	// Services
	Registry *scanner.Registry
	Engine   *scanner.Engine
	Risk     *risk.Engine
	Analyst  *ai.Analyst
	Reports  *report.Generator
}

// Config carries the externally supplied settings the container needs.
type Config struct {
	ResultsDir string
	ToolsFile  string
	LaunchRate float64
	AnalystURL string
	// AnalystModel selects the model on the local inference server.
	AnalystModel string
	// OfflineAnalyst disables the LLM client entirely.
	OfflineAnalyst bool
	Logger         *zap.SugaredLogger
}

// NewContainer wires the application graph.
func NewContainer(cfg Config) (*Container, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	findings := store.NewFindingsStore()
	issues := store.NewIssuesStore()
	killchain := store.NewKillchainStore()

	evidenceStore, err := evidence.NewStore(filepath.Join(cfg.ResultsDir, "evidence"))
	if err != nil {
		return nil, fmt.Errorf("failed to create evidence store: %w", err)
	}

	registry := scanner.NewRegistry()
	if cfg.ToolsFile != "" {
		if err := registry.LoadOverlay(cfg.ToolsFile); err != nil {
			return nil, fmt.Errorf("failed to load tools file: %w", err)
		}
	}

	classifier := scanner.KeywordClassifier{}
	engine := scanner.NewEngine(scanner.EngineConfig{
		Registry:   registry,
		Findings:   findings,
		Issues:     issues,
		Killchain:  killchain,
		Evidence:   evidenceStore,
		Classifier: classifier,
		Phases:     &scanner.ReconPhaseRunner{},
		Enrich:     enrich.Apply,
		LaunchRate: cfg.LaunchRate,
		Logger:     logger,
	})

	riskEngine := risk.NewEngine(issues)

	var client *ai.Client
	if !cfg.OfflineAnalyst {
		client = ai.NewClient(cfg.AnalystURL, cfg.AnalystModel)
	}
	analyst := ai.NewAnalyst(ai.AnalystConfig{
		Client:     client,
		Findings:   findings,
		Issues:     issues,
		Killchain:  killchain,
		Evidence:   evidenceStore,
		Classifier: classifier,
		Logger:     logger,
	})

	reports := &report.Generator{
		Findings:  findings,
		Issues:    issues,
		Killchain: killchain,
		Risk:      riskEngine,
		Client:    client,
	}

	return &Container{
		Findings:  findings,
		Issues:    issues,
		Killchain: killchain,
		Evidence:  evidenceStore,
		Registry:  registry,
		Engine:    engine,
		Risk:      riskEngine,
		Analyst:   analyst,
		Reports:   reports,
	}, nil
}
