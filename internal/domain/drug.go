package domain

// Mapping method tags identifying which strategy produced a match
const (
	MethodNone            = "none"
	MethodDirectExact     = "direct_exact"
	MethodTranslatedExact = "translated_exact"
	MethodFuzzyHigh       = "fuzzy_high"
	MethodError           = "error"
)

// DrugRecord represents one row of the CNOPS formulary.
// Field names mirror the source columns (CODE, NOM, DCI1, ...).
type DrugRecord struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Ingredient string `json:"ingredient" binding:"required"` // DCI1, primary active ingredient
	Dosage     string `json:"dosage,omitempty"`
	DosageUnit string `json:"dosageUnit,omitempty"`
	DoseForm   string `json:"doseForm,omitempty"`
}

// Candidate is a ranked result from the approximate-term search.
// Score is on the 0-100 scale assigned by the terminology service.
type Candidate struct {
	Rxcui string `json:"rxcui"`
	Term  string `json:"term"`
	Score int    `json:"score"`
}

// RelatedConcept is a concept related to an RXCUI, tagged with its term type
// (SCD = semantic clinical drug, SBD = semantic branded drug, ...).
type RelatedConcept struct {
	Rxcui string `json:"rxcui"`
	Name  string `json:"name"`
	TTY   string `json:"tty"`
}

// MappingResult is the outcome of resolving one CNOPS record against RxNorm.
//
// Invariant at pipeline exit: Rxcui is non-empty exactly when Method is
// neither MethodNone nor MethodError, and ConfidenceScore is 0.0 exactly
// when Rxcui is empty.
type MappingResult struct {
	SourceCode       string      `json:"sourceCode"`
	SourceName       string      `json:"sourceName"`
	SourceIngredient string      `json:"sourceIngredient"`
	Rxcui            string      `json:"rxcui,omitempty"`
	RxnormName       string      `json:"rxnormName,omitempty"`
	ConfidenceScore  float64     `json:"confidenceScore"`
	Method           string      `json:"method"`
	Notes            []string    `json:"notes,omitempty"`
	Alternatives     []Candidate `json:"alternatives,omitempty"`
}

// Matched reports whether any strategy produced an RxNorm concept.
func (r MappingResult) Matched() bool {
	return r.Rxcui != ""
}

// WithNote returns a copy of the result with one annotation appended.
// The copied Notes slice keeps result values independent between stages.
func (r MappingResult) WithNote(note string) MappingResult {
	notes := make([]string, 0, len(r.Notes)+1)
	notes = append(notes, r.Notes...)
	notes = append(notes, note)
	r.Notes = notes
	return r
}
