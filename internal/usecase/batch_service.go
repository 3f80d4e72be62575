package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/pharmamap/backend/internal/domain"
)

// progressInterval is how many records pass between progress log lines
const progressInterval = 100

// Resolver maps a single drug record. Satisfied by ResolverService.
type Resolver interface {
	Resolve(ctx context.Context, record domain.DrugRecord) domain.MappingResult
}

// BatchService runs the resolver over a whole CNOPS export. Records are
// processed sequentially so the RxNorm rate limit stays the only pacing
// mechanism.
type BatchService struct {
	resolver Resolver
	high     float64
	medium   float64
	low      float64
}

// NewBatchService creates a batch runner using the given confidence tier
// thresholds for summaries. Zero thresholds fall back to the defaults.
func NewBatchService(resolver Resolver, high, medium, low float64) *BatchService {
	if high <= 0 {
		high = 0.8
	}
	if medium <= 0 {
		medium = 0.5
	}
	if low <= 0 {
		low = 0.3
	}
	return &BatchService{
		resolver: resolver,
		high:     high,
		medium:   medium,
		low:      low,
	}
}

// ProcessAll resolves every record in order. A panic while resolving one
// record is contained to that record: it produces an error result and the
// run continues.
func (s *BatchService) ProcessAll(ctx context.Context, records []domain.DrugRecord) []domain.MappingResult {
	runID := uuid.New().String()
	log.Printf("[BATCH] run %s: processing %d records", runID, len(records))

	results := make([]domain.MappingResult, 0, len(records))
	for i, record := range records {
		results = append(results, s.resolveOne(ctx, record))

		if (i+1)%progressInterval == 0 {
			log.Printf("[BATCH] run %s: %d/%d records processed", runID, i+1, len(records))
		}
	}

	log.Printf("[BATCH] run %s: complete, %d/%d mapped", runID, countMapped(results), len(records))
	return results
}

func (s *BatchService) resolveOne(ctx context.Context, record domain.DrugRecord) (result domain.MappingResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[BATCH] panic while resolving %s: %v", record.Code, r)
			result = domain.MappingResult{
				SourceCode:       record.Code,
				SourceName:       record.Name,
				SourceIngredient: record.Ingredient,
				Method:           domain.MethodError,
			}
			result = result.WithNote(fmt.Sprintf("Error: %v", r))
		}
	}()

	return s.resolver.Resolve(ctx, record)
}

// Summary aggregates a finished batch run for reporting
type Summary struct {
	Total       int
	Mapped      int
	High        int
	Medium      int
	Low         int
	VeryLow     int
	Methods     map[string]int
	TopUnmapped []IngredientCount
}

// IngredientCount pairs an unmapped ingredient with how often it appeared
type IngredientCount struct {
	Ingredient string
	Count      int
}

// SuccessRate is the mapped fraction as a percentage, zero for an empty run
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Mapped) * 100 / float64(s.Total)
}

// Summarize builds the run summary: mapped counts, confidence tier
// distribution, method breakdown, and the ten most frequent unmapped
// ingredients.
func (s *BatchService) Summarize(results []domain.MappingResult) Summary {
	summary := Summary{
		Total:   len(results),
		Methods: make(map[string]int),
	}

	unmapped := make(map[string]int)
	for _, result := range results {
		summary.Methods[result.Method]++

		if !result.Matched() {
			if result.SourceIngredient != "" {
				unmapped[result.SourceIngredient]++
			}
			continue
		}

		summary.Mapped++
		switch {
		case result.ConfidenceScore >= s.high:
			summary.High++
		case result.ConfidenceScore >= s.medium:
			summary.Medium++
		case result.ConfidenceScore >= s.low:
			summary.Low++
		default:
			summary.VeryLow++
		}
	}

	summary.TopUnmapped = topIngredients(unmapped, 10)
	return summary
}

// PrintSummary writes the run summary to the log in a readable block
func (s *BatchService) PrintSummary(summary Summary) {
	log.Printf("[BATCH] ============================================")
	log.Printf("[BATCH] Mapping summary")
	log.Printf("[BATCH] ============================================")
	log.Printf("[BATCH] Total records:   %d", summary.Total)
	log.Printf("[BATCH] Mapped:          %d (%.1f%%)", summary.Mapped, summary.SuccessRate())
	log.Printf("[BATCH] Confidence tiers:")
	log.Printf("[BATCH]   high:     %d", summary.High)
	log.Printf("[BATCH]   medium:   %d", summary.Medium)
	log.Printf("[BATCH]   low:      %d", summary.Low)
	log.Printf("[BATCH]   very low: %d", summary.VeryLow)
	log.Printf("[BATCH] Methods:")
	for _, method := range sortedKeys(summary.Methods) {
		log.Printf("[BATCH]   %s: %d", method, summary.Methods[method])
	}
	if len(summary.TopUnmapped) > 0 {
		log.Printf("[BATCH] Top unmapped ingredients:")
		for _, entry := range summary.TopUnmapped {
			log.Printf("[BATCH]   %s (%d)", entry.Ingredient, entry.Count)
		}
	}
	log.Printf("[BATCH] ============================================")
}

func countMapped(results []domain.MappingResult) int {
	mapped := 0
	for _, result := range results {
		if result.Matched() {
			mapped++
		}
	}
	return mapped
}

// topIngredients ranks by count descending, then name for stable output
func topIngredients(counts map[string]int, limit int) []IngredientCount {
	ranked := make([]IngredientCount, 0, len(counts))
	for ingredient, count := range counts {
		ranked = append(ranked, IngredientCount{Ingredient: ingredient, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Ingredient < ranked[j].Ingredient
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
