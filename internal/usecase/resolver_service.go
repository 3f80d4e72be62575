package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/pharmamap/backend/internal/domain"
)

// Package-level compiled regex pattern for performance
var multipleSpacesRegex = regexp.MustCompile(`\s+`)

// Base confidence per strategy and the product-enhancement bonus
const (
	confidenceDirectExact     = 0.9
	confidenceTranslatedExact = 0.8
	confidenceFuzzyHigh       = 0.6
	productEnhancementBonus   = 0.1
)

// Product scoring weights for strength and dose-form substring matches
const (
	strengthMatchPoints = 50
	doseFormMatchPoints = 30
)

// productTTYFilter selects product-level concepts: semantic clinical drugs
// and semantic branded drugs
const productTTYFilter = "SCD+SBD"

// ResolverConfig holds the scoring and validation knobs for the resolver
type ResolverConfig struct {
	HighThreshold           float64
	MediumThreshold         float64
	LowThreshold            float64
	NameSimilarityThreshold int // 0-100
	FormMismatchPenalty     float64
	CombinationDrugPenalty  float64
	FuzzyScoreThreshold     int // 0-100
	MaxFuzzyCandidates      int
	CacheTTL                time.Duration
	EnableDebugLogging      bool
}

// ResolverService maps one CNOPS drug record to RxNorm by running the
// matching strategies in priority order, enhancing a hit with a specific
// product, and validating the final confidence score.
type ResolverService struct {
	terminology domain.TerminologyClient
	cache       domain.LookupCache // optional; nil disables caching
	ingredients domain.TranslationTable
	doseForms   domain.TranslationTable
	cfg         ResolverConfig
}

// NewResolverService creates a resolver with the given collaborators.
// Zero-valued config fields fall back to the standard defaults.
func NewResolverService(
	terminology domain.TerminologyClient,
	cache domain.LookupCache,
	ingredients domain.TranslationTable,
	doseForms domain.TranslationTable,
	cfg ResolverConfig,
) *ResolverService {
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = 0.8
	}
	if cfg.MediumThreshold <= 0 {
		cfg.MediumThreshold = 0.5
	}
	if cfg.LowThreshold <= 0 {
		cfg.LowThreshold = 0.3
	}
	if cfg.NameSimilarityThreshold <= 0 {
		cfg.NameSimilarityThreshold = 70
	}
	if cfg.FormMismatchPenalty <= 0 {
		cfg.FormMismatchPenalty = 0.8
	}
	if cfg.CombinationDrugPenalty <= 0 {
		cfg.CombinationDrugPenalty = 0.7
	}
	if cfg.FuzzyScoreThreshold <= 0 {
		cfg.FuzzyScoreThreshold = 80
	}
	if cfg.MaxFuzzyCandidates <= 0 {
		cfg.MaxFuzzyCandidates = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	return &ResolverService{
		terminology: terminology,
		cache:       cache,
		ingredients: ingredients,
		doseForms:   doseForms,
		cfg:         cfg,
	}
}

// match is the outcome of one successful strategy
type match struct {
	rxcui        string
	name         string
	method       string
	confidence   float64
	notes        []string
	alternatives []domain.Candidate
}

// strategyFunc tries one lookup strategy for an ingredient name. The bool
// reports whether the strategy produced a match; strategies never fail, a
// terminology error is just a miss.
type strategyFunc func(ctx context.Context, ingredient string) (match, bool)

// Resolve maps a single CNOPS record to RxNorm. It never returns an error:
// a record that cannot be mapped comes back with Method "none" and a zero
// confidence score.
func (s *ResolverService) Resolve(ctx context.Context, record domain.DrugRecord) domain.MappingResult {
	result := domain.MappingResult{
		SourceCode:       record.Code,
		SourceName:       record.Name,
		SourceIngredient: record.Ingredient,
		Method:           domain.MethodNone,
	}

	ingredient := normalizeIngredient(record.Ingredient)
	if ingredient == "" {
		return result.WithNote("No DCI1 ingredient specified")
	}

	if s.cfg.EnableDebugLogging {
		log.Printf("[RESOLVE] %s: resolving ingredient %q", record.Code, ingredient)
	}

	// Strict priority order: the first strategy that matches wins and
	// nothing below it runs.
	strategies := []strategyFunc{
		s.directExact,
		s.translatedExact,
		s.fuzzyHigh,
	}

	for _, strategy := range strategies {
		m, ok := strategy(ctx, ingredient)
		if !ok {
			continue
		}
		result = applyMatch(result, m)
		result = s.enhanceWithProduct(ctx, result, record)
		break
	}

	return s.validate(result, ingredient)
}

// directExact looks the raw ingredient name up as-is
func (s *ResolverService) directExact(ctx context.Context, ingredient string) (match, bool) {
	rxcui := s.lookupRxcui(ctx, ingredient)
	if rxcui == "" {
		return match{}, false
	}

	return match{
		rxcui:      rxcui,
		name:       ingredient,
		method:     domain.MethodDirectExact,
		confidence: confidenceDirectExact,
	}, true
}

// translatedExact looks up the French->English translation for the
// ingredient and searches for the translated term
func (s *ResolverService) translatedExact(ctx context.Context, ingredient string) (match, bool) {
	translated, ok := s.ingredients.Lookup(ingredient)
	if !ok {
		return match{}, false
	}

	rxcui := s.lookupRxcui(ctx, translated)
	if rxcui == "" {
		return match{}, false
	}

	return match{
		rxcui:      rxcui,
		name:       translated,
		method:     domain.MethodTranslatedExact,
		confidence: confidenceTranslatedExact,
		notes:      []string{fmt.Sprintf("Used translation: %s -> %s", ingredient, translated)},
	}, true
}

// fuzzyHigh runs the approximate-term search and accepts the top candidate
// only when its service-assigned score clears the acceptance threshold.
// Runner-up candidates are kept as alternatives for manual review;
// below-threshold results are discarded entirely.
func (s *ResolverService) fuzzyHigh(ctx context.Context, ingredient string) (match, bool) {
	candidates, err := s.terminology.ApproximateSearch(ctx, ingredient, s.cfg.MaxFuzzyCandidates)
	if err != nil {
		if s.cfg.EnableDebugLogging {
			log.Printf("[RESOLVE] approximate search failed for %q: %v", ingredient, err)
		}
		return match{}, false
	}
	if len(candidates) == 0 {
		return match{}, false
	}

	best := candidates[0]
	if best.Score < s.cfg.FuzzyScoreThreshold {
		return match{}, false
	}

	return match{
		rxcui:        best.Rxcui,
		name:         best.Term,
		method:       domain.MethodFuzzyHigh,
		confidence:   confidenceFuzzyHigh,
		notes:        []string{fmt.Sprintf("Fuzzy match score: %d", best.Score)},
		alternatives: candidates[1:],
	}, true
}

// lookupRxcui performs a cached exact-name search. Hits and misses are both
// cached, so a batch with repeated ingredients queries each distinct name
// once. Terminology errors resolve to "no result".
func (s *ResolverService) lookupRxcui(ctx context.Context, name string) string {
	key := "rxcui:" + strings.ToLower(name)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			return cached
		}
	}

	rxcui, err := s.terminology.SearchByName(ctx, name)
	if err != nil {
		if s.cfg.EnableDebugLogging {
			log.Printf("[RESOLVE] exact search miss for %q: %v", name, err)
		}
		rxcui = ""
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, rxcui, s.cfg.CacheTTL); err != nil && s.cfg.EnableDebugLogging {
			log.Printf("[RESOLVE] cache set failed for %q: %v", key, err)
		}
	}

	return rxcui
}

// applyMatch copies a strategy match onto the result
func applyMatch(result domain.MappingResult, m match) domain.MappingResult {
	result.Rxcui = m.rxcui
	result.RxnormName = m.name
	result.Method = m.method
	result.ConfidenceScore = m.confidence
	result.Alternatives = m.alternatives
	for _, note := range m.notes {
		result = result.WithNote(note)
	}
	return result
}

// enhanceWithProduct refines an ingredient-level match to a specific drug
// product when the record's strength or dose form pins one down. Selecting
// a product replaces the matched concept and adds a flat confidence bonus.
func (s *ResolverService) enhanceWithProduct(ctx context.Context, result domain.MappingResult, record domain.DrugRecord) domain.MappingResult {
	if !result.Matched() {
		return result
	}

	products, err := s.terminology.GetRelatedConcepts(ctx, result.Rxcui, productTTYFilter)
	if err != nil || len(products) == 0 {
		return result
	}

	targetStrength := strings.TrimSpace(record.Dosage + " " + record.DosageUnit)
	targetForm := s.doseForms.LookupOrSelf(record.DoseForm)

	product := findBestProduct(products, targetStrength, targetForm)

	result.Rxcui = product.Rxcui
	result.RxnormName = product.Name
	result.ConfidenceScore += productEnhancementBonus
	return result.WithNote("Enhanced with specific product")
}

// findBestProduct scores each product against the record's strength and
// dose form; ties break by input order. When nothing scores, the first SCD
// is preferred, then the first product outright.
func findBestProduct(products []domain.RelatedConcept, targetStrength, targetForm string) domain.RelatedConcept {
	best := -1
	bestScore := 0

	for i, product := range products {
		score := scoreProduct(product.Name, targetStrength, targetForm)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}

	if best >= 0 {
		return products[best]
	}

	for _, product := range products {
		if product.TTY == "SCD" {
			return product
		}
	}

	return products[0]
}

// scoreProduct awards points for case-insensitive substring matches of the
// strength and dose form inside the product's display name. Empty inputs
// score nothing.
func scoreProduct(productName, targetStrength, targetForm string) int {
	name := strings.ToUpper(productName)
	score := 0

	if targetStrength != "" && strings.Contains(name, strings.ToUpper(targetStrength)) {
		score += strengthMatchPoints
	}
	if targetForm != "" && strings.Contains(name, strings.ToUpper(targetForm)) {
		score += doseFormMatchPoints
	}

	return score
}

// validate finalizes every result that entered the strategy pipeline:
// unmatched records are forced to zero confidence, matched records take
// similarity and combination-drug penalties, and a confidence tier note is
// appended.
func (s *ResolverService) validate(result domain.MappingResult, ingredient string) domain.MappingResult {
	if !result.Matched() {
		result.ConfidenceScore = 0.0
		return result.WithNote("No RxNorm mapping found")
	}

	similarity := similarityRatio(strings.ToUpper(ingredient), strings.ToUpper(result.RxnormName))
	if similarity < s.cfg.NameSimilarityThreshold {
		result.ConfidenceScore *= s.cfg.FormMismatchPenalty
		result = result.WithNote(fmt.Sprintf("Low name similarity: %d%%", similarity))
	}

	// A combination drug (A/B) mapped to a single-ingredient concept is
	// suspect even when the names look alike
	if strings.Contains(ingredient, "/") && !strings.Contains(result.RxnormName, "/") {
		result.ConfidenceScore *= s.cfg.CombinationDrugPenalty
		result = result.WithNote("Possible combination drug mismatch")
	}

	switch {
	case result.ConfidenceScore >= s.cfg.HighThreshold:
		result = result.WithNote("HIGH confidence mapping")
	case result.ConfidenceScore >= s.cfg.MediumThreshold:
		result = result.WithNote("MEDIUM confidence mapping")
	case result.ConfidenceScore >= s.cfg.LowThreshold:
		result = result.WithNote("LOW confidence - review recommended")
	default:
		result = result.WithNote("VERY LOW confidence - manual review required")
	}

	return result
}

// normalizeIngredient trims and collapses whitespace in a DCI1 value.
// CNOPS exports carry trailing spaces and doubled separators.
func normalizeIngredient(ingredient string) string {
	return strings.TrimSpace(multipleSpacesRegex.ReplaceAllString(ingredient, " "))
}
