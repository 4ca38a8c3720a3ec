// Package validation implements the deterministic rule engine that checks
// submitted form data against a generated schema. It is pure: no I/O, no
// clock, identical output for identical input.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/nmorel/lexidraft/internal/contract"
)

// Semantically paired date fields: the first must not be chronologically
// after the second. The error is attributed to the second field.
var datePairs = []struct {
	start, end, message string
}{
	{"date_debut", "date_fin", "la date de fin doit être postérieure à la date de début"},
	{"date_signature", "date_effet", "la date d'effet ne peut pas précéder la date de signature"},
	{"date_naissance", "date_signature", "la date de signature ne peut pas précéder la date de naissance"},
}

// Field-name keywords that mark a value as monetary.
var amountKeywords = []string{
	"montant", "prix", "loyer", "salaire", "remuneration", "acompte", "caution",
}

// Candidate total-price fields checked against the acompte.
var totalPriceFields = []string{"prix_total", "montant_total", "prix_vente"}

// Party-role prefixes whose identity sub-fields are checked for coherence.
var partyPrefixes = []string{
	"partie1", "partie2", "vendeur", "acquereur", "bailleur", "locataire",
}

// Validate checks formData against schema and collects every applicable
// error; it never short-circuits and never fails on malformed input.
// Checks run in a fixed order (required, format, date coherence, amount
// coherence, party coherence, business rules, conditional required) so the
// first error reported for a field is deterministic.
func Validate(formData map[string]any, schema *contract.FormSchema) *contract.ValidationResult {
	errs := []contract.ValidationError{}
	if schema != nil {
		errs = append(errs, checkRequired(formData, schema)...)
		errs = append(errs, checkFormats(formData, schema)...)
	}
	errs = append(errs, checkDateCoherence(formData)...)
	errs = append(errs, checkAmountCoherence(formData)...)
	errs = append(errs, checkPartyCoherence(formData)...)
	if schema != nil {
		errs = append(errs, checkBusinessRules(formData, schema.ValidationRules)...)
		errs = append(errs, checkConditionalRequired(formData, schema)...)
	}
	return &contract.ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

func checkRequired(formData map[string]any, schema *contract.FormSchema) []contract.ValidationError {
	var errs []contract.ValidationError
	for _, f := range schema.Fields {
		if !f.Required || f.ConditionalOn != nil {
			continue
		}
		if isEmpty(formData, f.ID) {
			errs = append(errs, requiredError(f))
		}
	}
	return errs
}

func requiredError(f contract.FormField) contract.ValidationError {
	label := f.Label
	if label == "" {
		label = f.ID
	}
	return contract.ValidationError{
		Field:   f.ID,
		Message: fmt.Sprintf("Le champ %s est obligatoire", label),
		Type:    contract.ErrorRequired,
	}
}

func checkFormats(formData map[string]any, schema *contract.FormSchema) []contract.ValidationError {
	var errs []contract.ValidationError
	for _, f := range schema.Fields {
		value, ok := stringValue(formData, f.ID)
		if !ok {
			continue
		}
		label := f.Label
		if label == "" {
			label = f.ID
		}

		switch f.Type {
		case "number":
			n, numOK := parseNumber(value)
			if !numOK {
				errs = append(errs, contract.ValidationError{
					Field:   f.ID,
					Message: fmt.Sprintf("Le champ %s doit être un nombre", label),
					Type:    contract.ErrorFormat,
				})
				break
			}
			if f.Validation != nil && f.Validation.Min != nil && n < *f.Validation.Min {
				errs = append(errs, contract.ValidationError{
					Field:   f.ID,
					Message: fmt.Sprintf("Le champ %s doit être supérieur ou égal à %g", label, *f.Validation.Min),
					Type:    contract.ErrorFormat,
				})
			}
			if f.Validation != nil && f.Validation.Max != nil && n > *f.Validation.Max {
				errs = append(errs, contract.ValidationError{
					Field:   f.ID,
					Message: fmt.Sprintf("Le champ %s doit être inférieur ou égal à %g", label, *f.Validation.Max),
					Type:    contract.ErrorFormat,
				})
			}
		case "date":
			if _, dateOK := parseDate(value); !dateOK {
				errs = append(errs, contract.ValidationError{
					Field:   f.ID,
					Message: fmt.Sprintf("Le champ %s doit être une date valide", label),
					Type:    contract.ErrorFormat,
				})
			}
		}

		if f.Validation != nil && f.Validation.Pattern != "" {
			re, err := regexp.Compile(f.Validation.Pattern)
			// An uncompilable pattern is a schema defect, not a user error.
			if err == nil && !re.MatchString(value) {
				errs = append(errs, contract.ValidationError{
					Field:   f.ID,
					Message: fmt.Sprintf("Le champ %s ne respecte pas le format attendu", label),
					Type:    contract.ErrorFormat,
				})
			}
		}
	}
	return errs
}

func checkDateCoherence(formData map[string]any) []contract.ValidationError {
	var errs []contract.ValidationError
	for _, pair := range datePairs {
		startRaw, okStart := stringValue(formData, pair.start)
		endRaw, okEnd := stringValue(formData, pair.end)
		if !okStart || !okEnd {
			continue
		}
		start, okStart := parseDate(startRaw)
		end, okEnd := parseDate(endRaw)
		if !okStart || !okEnd {
			continue
		}
		if start.After(end) {
			errs = append(errs, contract.ValidationError{
				Field:   pair.end,
				Message: pair.message,
				Type:    contract.ErrorCoherence,
			})
		}
	}

	// duree (months) must match the date_debut..date_fin span within one month.
	debutRaw, okDebut := stringValue(formData, "date_debut")
	finRaw, okFin := stringValue(formData, "date_fin")
	dureeRaw, okDuree := stringValue(formData, "duree")
	if okDebut && okFin && okDuree {
		debut, okDebut := parseDate(debutRaw)
		fin, okFin := parseDate(finRaw)
		duree, okDuree := parseNumber(dureeRaw)
		if okDebut && okFin && okDuree && !fin.Before(debut) {
			elapsed := monthsBetween(debut, fin)
			if math.Abs(float64(elapsed)-duree) > 1 {
				errs = append(errs, contract.ValidationError{
					Field:   "duree",
					Message: "la durée indiquée ne correspond pas à l'écart entre la date de début et la date de fin",
					Type:    contract.ErrorCoherence,
				})
			}
		}
	}
	return errs
}

func checkAmountCoherence(formData map[string]any) []contract.ValidationError {
	var errs []contract.ValidationError
	for _, field := range sortedKeys(formData) {
		if !isAmountField(field) {
			continue
		}
		value, ok := stringValue(formData, field)
		if !ok {
			continue
		}
		n, numOK := parseNumber(value)
		if numOK && n < 0 {
			errs = append(errs, contract.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("Le champ %s ne peut pas être négatif", field),
				Type:    contract.ErrorCoherence,
			})
		}
	}

	acompteRaw, okAcompte := stringValue(formData, "acompte")
	if okAcompte {
		if acompte, ok := parseNumber(acompteRaw); ok {
			for _, totalField := range totalPriceFields {
				totalRaw, okTotal := stringValue(formData, totalField)
				if !okTotal {
					continue
				}
				if total, ok := parseNumber(totalRaw); ok && acompte > total {
					errs = append(errs, contract.ValidationError{
						Field:   "acompte",
						Message: "L'acompte ne peut pas être supérieur au prix total",
						Type:    contract.ErrorCoherence,
					})
				}
				break
			}
		}
	}
	return errs
}

func isAmountField(field string) bool {
	lower := strings.ToLower(field)
	for _, kw := range amountKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func checkPartyCoherence(formData map[string]any) []contract.ValidationError {
	var errs []contract.ValidationError
	for _, prefix := range partyPrefixes {
		nomField := prefix + "_nom"
		prenomField := prefix + "_prenom"
		adresseField := prefix + "_adresse"
		raisonField := prefix + "_raison_sociale"

		nom, hasNom := stringValue(formData, nomField)
		_, hasPrenom := stringValue(formData, prenomField)
		_, hasAdresse := stringValue(formData, adresseField)
		_, hasRaison := stringValue(formData, raisonField)

		if !hasNom && !hasPrenom && !hasAdresse {
			continue
		}

		label := partyLabel(prefix)
		if !hasNom {
			errs = append(errs, contract.ValidationError{
				Field:   nomField,
				Message: fmt.Sprintf("Le nom de %s est obligatoire", label),
				Type:    contract.ErrorRequired,
			})
		}
		// A company (raison sociale) or a full name in the nom field stands in
		// for the first name.
		fullName := hasNom && strings.Contains(strings.TrimSpace(nom), " ")
		if !hasPrenom && !hasRaison && !fullName {
			errs = append(errs, contract.ValidationError{
				Field:   prenomField,
				Message: fmt.Sprintf("Le prénom de %s est obligatoire (ou raison sociale si entreprise)", label),
				Type:    contract.ErrorRequired,
			})
		}
	}
	return errs
}

func partyLabel(prefix string) string {
	switch prefix {
	case "partie1":
		return "Partie 1"
	case "partie2":
		return "Partie 2"
	default:
		return strings.ToUpper(prefix[:1]) + prefix[1:]
	}
}

func checkConditionalRequired(formData map[string]any, schema *contract.FormSchema) []contract.ValidationError {
	var errs []contract.ValidationError
	for _, f := range schema.Fields {
		if f.ConditionalOn == nil || !f.Required {
			continue
		}
		guard, ok := stringValue(formData, f.ConditionalOn.Field)
		if !ok || guard != f.ConditionalOn.Value {
			continue
		}
		if isEmpty(formData, f.ID) {
			errs = append(errs, requiredError(f))
		}
	}
	return errs
}
