// Package dictionary provides the static French->English translation tables
// the resolver consults: DCI ingredient names and pharmaceutical dose forms.
// Built-in defaults cover the most common CNOPS entries; JSON files can
// merge additional pairs over them.
package dictionary

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/pharmamap/backend/internal/domain"
)

// defaultIngredients maps CNOPS DCI1 ingredient names to RxNorm-searchable
// English names.
var defaultIngredients = map[string]string{
	"ACIDE ACETYLSALICYLIQUE": "aspirin",
	"PARACETAMOL":             "acetaminophen",
	"ACIDE ASCORBIQUE":        "ascorbic acid",
	"ACIDE FOLIQUE":           "folic acid",
	"AMOXICILLINE":            "amoxicillin",
	"DICLOFENAC":              "diclofenac",
	"IBUPROFENE":              "ibuprofen",
	"FLUCONAZOLE":             "fluconazole",
	"LANSOPRAZOLE":            "lansoprazole",
	"CETIRIZINE":              "cetirizine",
	"CLONAZEPAM":              "clonazepam",
	"OXALIPLATINE":            "oxaliplatin",
	"CEFACLOR":                "cefaclor",
	"CEFOTAXIME":              "cefotaxime",
	"HYDROXOCOBALAMINE":       "hydroxocobalamin",
	"TETRAZEPAM":              "tetrazepam",
	"INDAPAMIDE":              "indapamide",
	"PERINDOPRIL":             "perindopril",
	"RIFAMYCINE":              "rifamycin",
	"PREDNISOLONE":            "prednisolone",
	"CHLORPHENAMINE":          "chlorpheniramine",
	"AMBROXOL":                "ambroxol",
	"BENFLUOREX":              "benfluorex",
	"VILOXAZINE":              "viloxazine",
	"ZIPRASIDONE":             "ziprasidone",
}

// defaultDoseForms maps CNOPS FORME values to the terms RxNorm uses inside
// product names.
var defaultDoseForms = map[string]string{
	"COMPRIME":              "tablet",
	"COMPRIME EFFERVESCENT": "effervescent tablet",
	"COMPRIME ENROBE":       "coated tablet",
	"GELULE":                "capsule",
	"SIROP":                 "syrup",
	"SOLUTION BUVABLE":      "oral solution",
	"SUSPENSION BUVABLE":    "oral suspension",
	"SOLUTION INJECTABLE":   "injection",
	"POUDRE INJECTABLE":     "injection",
	"POMMADE":               "ointment",
	"CREME":                 "cream",
	"GEL":                   "gel",
	"SUPPOSITOIRE":          "suppository",
	"COLLYRE":               "ophthalmic solution",
	"SACHET":                "powder",
	"PATCH":                 "patch",
}

// Ingredients returns the ingredient-name translation table, with entries
// from path (optional) merged over the built-in defaults.
func Ingredients(path string) domain.TranslationTable {
	return load(defaultIngredients, path)
}

// DoseForms returns the dose-form translation table, with entries from path
// (optional) merged over the built-in defaults.
func DoseForms(path string) domain.TranslationTable {
	return load(defaultDoseForms, path)
}

func load(defaults map[string]string, path string) domain.TranslationTable {
	table := make(domain.TranslationTable, len(defaults))
	table.Merge(defaults)

	if path == "" {
		return table
	}

	extra, err := readJSONDict(path)
	if err != nil {
		log.Printf("[DICT] dictionary file %s not loaded: %v (using built-in table)", path, err)
		return table
	}

	table.Merge(extra)
	log.Printf("[DICT] merged %d entries from %s", len(extra), path)
	return table
}

// readJSONDict loads a flat string->string JSON object
func readJSONDict(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dict map[string]string
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("invalid dictionary file: %w", err)
	}

	return dict, nil
}
