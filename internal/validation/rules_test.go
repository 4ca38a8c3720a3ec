package validation

import (
	"testing"

	"github.com/nmorel/lexidraft/internal/contract"
)

func TestParseComparison(t *testing.T) {
	tests := []struct {
		expr    string
		lhs     string
		op      string
		rhs     string
		wantErr bool
	}{
		{"prix_total >= acompte", "prix_total", ">=", "acompte", false},
		{"date_debut<date_fin", "date_debut", "<", "date_fin", false},
		{"a == b", "a", "==", "b", false},
		{"loyer > caution", "loyer", ">", "caution", false},
		{"no operator here", "", "", "", true},
		{">= rhs_only", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cmp, err := parseComparison(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseComparison(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if cmp.lhs != tt.lhs || cmp.op != tt.op || cmp.rhs != tt.rhs {
				t.Errorf("parseComparison(%q) = {%s %s %s}, want {%s %s %s}",
					tt.expr, cmp.lhs, cmp.op, cmp.rhs, tt.lhs, tt.op, tt.rhs)
			}
		})
	}
}

func TestBusinessRules_Comparison(t *testing.T) {
	rules := []contract.ValidationRule{
		{
			Type:         contract.RuleComparison,
			Fields:       []string{"prix_total", "acompte"},
			Rule:         "prix_total >= acompte",
			ErrorMessage: "Le prix total doit couvrir l'acompte",
		},
	}

	tests := []struct {
		name     string
		formData map[string]any
		wantErr  bool
	}{
		{"satisfied", map[string]any{"prix_total": "1000", "acompte": "300"}, false},
		{"violated", map[string]any{"prix_total": "100", "acompte": "300"}, true},
		{"lhs missing is vacuous", map[string]any{"acompte": "300"}, false},
		{"rhs missing is vacuous", map[string]any{"prix_total": "100"}, false},
		{"equal passes gte", map[string]any{"prix_total": "300", "acompte": "300"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := checkBusinessRules(tt.formData, rules)
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("errors = %+v, wantErr %v", errs, tt.wantErr)
			}
			if tt.wantErr {
				if errs[0].Field != "prix_total" {
					t.Errorf("error attributed to %q, want prix_total", errs[0].Field)
				}
				if errs[0].Message != "Le prix total doit couvrir l'acompte" {
					t.Errorf("message = %q", errs[0].Message)
				}
				if errs[0].Type != contract.ErrorBusinessRule {
					t.Errorf("type = %q, want business_rule", errs[0].Type)
				}
			}
		})
	}
}

func TestBusinessRules_Required(t *testing.T) {
	rules := []contract.ValidationRule{
		{
			Type:         contract.RuleRequired,
			Fields:       []string{"bailleur_nom", "locataire_nom"},
			ErrorMessage: "Les deux parties doivent être identifiées",
		},
	}

	errs := checkBusinessRules(map[string]any{"bailleur_nom": "Durand"}, rules)
	if len(errs) != 1 {
		t.Fatalf("errors = %+v, want 1", errs)
	}
	if errs[0].Field != "bailleur_nom" {
		t.Errorf("error attributed to %q, want bailleur_nom", errs[0].Field)
	}

	errs = checkBusinessRules(map[string]any{"bailleur_nom": "Durand", "locataire_nom": "Petit"}, rules)
	if len(errs) != 0 {
		t.Errorf("errors = %+v, want none", errs)
	}
}

func TestBusinessRules_CoherenceAlwaysPasses(t *testing.T) {
	rules := []contract.ValidationRule{
		{Type: contract.RuleCoherence, Fields: []string{"date_debut"}, Rule: "anything"},
	}
	if errs := checkBusinessRules(map[string]any{}, rules); len(errs) != 0 {
		t.Errorf("coherence rule produced errors: %+v", errs)
	}
}

func TestBusinessRules_DateComparison(t *testing.T) {
	rules := []contract.ValidationRule{
		{
			Type:         contract.RuleComparison,
			Fields:       []string{"date_signature", "date_debut"},
			Rule:         "date_signature <= date_debut",
			ErrorMessage: "La signature doit précéder le début du contrat",
		},
	}

	errs := checkBusinessRules(map[string]any{
		"date_signature": "2024-03-01",
		"date_debut":     "2024-01-01",
	}, rules)
	if len(errs) != 1 {
		t.Fatalf("errors = %+v, want 1", errs)
	}

	errs = checkBusinessRules(map[string]any{
		"date_signature": "2024-01-01",
		"date_debut":     "2024-03-01",
	}, rules)
	if len(errs) != 0 {
		t.Errorf("errors = %+v, want none", errs)
	}
}
