package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pharmamap/backend/config"
	httpDelivery "github.com/pharmamap/backend/internal/delivery/http"
	"github.com/pharmamap/backend/internal/domain"
	"github.com/pharmamap/backend/internal/infrastructure/cache"
	"github.com/pharmamap/backend/internal/infrastructure/dictionary"
	"github.com/pharmamap/backend/internal/infrastructure/rxnorm"
	"github.com/pharmamap/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PharmaMap Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("RxNav API: %s (rate limit %s, %d retries)",
		cfg.RxNorm.BaseURL, cfg.RxNorm.RateLimit, cfg.RxNorm.Retries)

	// Initialize infrastructure dependencies
	var lookupCache *cache.LookupCache
	if cfg.Cache.Enabled {
		lookupCache = cache.NewLookupCache()
		log.Printf("Lookup cache enabled (TTL %s)", cfg.Cache.TTL)
	} else {
		log.Printf("Lookup cache disabled")
	}

	rxnormClient := rxnorm.NewClient(cfg.RxNorm.BaseURL, cfg.RxNorm.RateLimit, cfg.RxNorm.Timeout, cfg.RxNorm.Retries)

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" || cfg.RxNorm.Debug {
		rxnormClient.SetDebug(true)
		log.Printf("RxNav client debug mode enabled")
	}

	ingredients := dictionary.Ingredients(cfg.Dictionaries.IngredientsPath)
	doseForms := dictionary.DoseForms(cfg.Dictionaries.DoseFormsPath)
	log.Printf("Dictionaries: %d ingredient translations, %d dose forms", len(ingredients), len(doseForms))

	// Initialize usecase layer
	resolver := usecase.NewResolverService(
		rxnormClient,
		cacheOrNil(lookupCache),
		ingredients,
		doseForms,
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

	log.Printf("Mapping: tiers high=%.2f medium=%.2f low=%.2f, fuzzy threshold=%d",
		cfg.Mapping.ConfidenceThresholds.High,
		cfg.Mapping.ConfidenceThresholds.Medium,
		cfg.Mapping.ConfidenceThresholds.Low,
		cfg.Mapping.Fuzzy.ScoreThreshold)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(resolver)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// cacheOrNil keeps a disabled cache as a true nil interface
func cacheOrNil(c *cache.LookupCache) domain.LookupCache {
	if c == nil {
		return nil
	}
	return c
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
