// Command mapper runs the CNOPS to RxNorm mapping over a CSV export and
// writes the results, a console summary, and an optional HTML dashboard.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/pharmamap/backend/config"
	"github.com/pharmamap/backend/internal/domain"
	"github.com/pharmamap/backend/internal/infrastructure/cache"
	"github.com/pharmamap/backend/internal/infrastructure/dictionary"
	"github.com/pharmamap/backend/internal/infrastructure/report"
	"github.com/pharmamap/backend/internal/infrastructure/rxnorm"
	"github.com/pharmamap/backend/internal/infrastructure/tabular"
	"github.com/pharmamap/backend/internal/usecase"
)

func main() {
	inputPath := flag.String("input", "", "CNOPS CSV export to map (required)")
	outputPath := flag.String("output", "mapping_results.csv", "where to write the mapping results CSV")
	dashboardPath := flag.String("dashboard", "", "optional path for an HTML report")
	limit := flag.Int("limit", 0, "map only the first N records (0 = all)")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	records, err := readRecords(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *inputPath, err)
	}
	if *limit > 0 && len(records) > *limit {
		records = records[:*limit]
	}
	log.Printf("Loaded %d records from %s", len(records), *inputPath)

	batch := buildBatchService(cfg)
	results := batch.ProcessAll(context.Background(), records)

	if err := writeResults(*outputPath, results); err != nil {
		log.Fatalf("Failed to write %s: %v", *outputPath, err)
	}
	log.Printf("Results written to %s", *outputPath)

	summary := batch.Summarize(results)
	batch.PrintSummary(summary)

	if *dashboardPath != "" {
		if err := writeDashboard(*dashboardPath, summary); err != nil {
			log.Fatalf("Failed to write dashboard %s: %v", *dashboardPath, err)
		}
		log.Printf("Dashboard written to %s", *dashboardPath)
	}
}

// buildBatchService wires the full resolver stack from configuration
func buildBatchService(cfg *config.Config) *usecase.BatchService {
	rxnormClient := rxnorm.NewClient(cfg.RxNorm.BaseURL, cfg.RxNorm.RateLimit, cfg.RxNorm.Timeout, cfg.RxNorm.Retries)
	if cfg.RxNorm.Debug {
		rxnormClient.SetDebug(true)
	}

	var lookupCache domain.LookupCache
	if cfg.Cache.Enabled {
		lookupCache = cache.NewLookupCache()
	}

	resolver := usecase.NewResolverService(
		rxnormClient,
		lookupCache,
		dictionary.Ingredients(cfg.Dictionaries.IngredientsPath),
		dictionary.DoseForms(cfg.Dictionaries.DoseFormsPath),
		usecase.ResolverConfig{
			HighThreshold:           cfg.Mapping.ConfidenceThresholds.High,
			MediumThreshold:         cfg.Mapping.ConfidenceThresholds.Medium,
			LowThreshold:            cfg.Mapping.ConfidenceThresholds.Low,
			NameSimilarityThreshold: cfg.Mapping.Validation.NameSimilarityThreshold,
			FormMismatchPenalty:     cfg.Mapping.Validation.FormMismatchPenalty,
			CombinationDrugPenalty:  cfg.Mapping.Validation.CombinationDrugPenalty,
			FuzzyScoreThreshold:     cfg.Mapping.Fuzzy.ScoreThreshold,
			MaxFuzzyCandidates:      cfg.Mapping.Fuzzy.MaxCandidates,
			CacheTTL:                cfg.Cache.TTL,
			EnableDebugLogging:      cfg.RxNorm.Debug,
		},
	)

	return usecase.NewBatchService(
		resolver,
		cfg.Mapping.ConfidenceThresholds.High,
		cfg.Mapping.ConfidenceThresholds.Medium,
		cfg.Mapping.ConfidenceThresholds.Low,
	)
}

func readRecords(path string) ([]domain.DrugRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tabular.ReadRecords(f)
}

func writeResults(path string, results []domain.MappingResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := tabular.WriteResults(f, results); err != nil {
		return err
	}
	return f.Close()
}

func writeDashboard(path string, summary usecase.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := report.WriteDashboard(f, summary); err != nil {
		return err
	}
	return f.Close()
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime)
	log.SetOutput(os.Stdout)
}
