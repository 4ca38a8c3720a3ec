package cabinet

import (
	"testing"

	"github.com/nmorel/lexidraft/internal/config"
)

func TestRegistry_LoadCabinets(t *testing.T) {
	registry := NewRegistry()

	cabinetConfigs := []config.CabinetConfig{
		{
			ID:   "cabinet-durand",
			Name: "Cabinet Durand & Associés",
			Role: "avocat",
			APIKeys: []config.APIKeyConfig{
				{
					KeyHash:     "hash1",
					Description: "Clé principale",
				},
			},
		},
		{
			ID:   "etude-martin",
			Name: "Étude Martin",
			Role: "notaire",
			APIKeys: []config.APIKeyConfig{
				{
					KeyHash:     "hash2",
					Description: "Clé de test",
				},
			},
		},
	}

	cabinets, err := registry.LoadCabinets(cabinetConfigs)
	if err != nil {
		t.Fatalf("LoadCabinets() error = %v", err)
	}

	if len(cabinets) != 2 {
		t.Errorf("LoadCabinets() returned %d cabinets, want 2", len(cabinets))
	}

	if cabinets[0].ID != "cabinet-durand" {
		t.Errorf("Cabinet 0 ID = %v, want cabinet-durand", cabinets[0].ID)
	}
	if cabinets[0].Role != "avocat" {
		t.Errorf("Cabinet 0 Role = %v, want avocat", cabinets[0].Role)
	}
	if len(cabinets[0].APIKeys) != 1 {
		t.Errorf("Cabinet 0 has %d API keys, want 1", len(cabinets[0].APIKeys))
	}
	if cabinets[1].Role != "notaire" {
		t.Errorf("Cabinet 1 Role = %v, want notaire", cabinets[1].Role)
	}
}

func TestRegistry_LoadCabinets_DefaultRole(t *testing.T) {
	registry := NewRegistry()

	cabinets, err := registry.LoadCabinets([]config.CabinetConfig{
		{ID: "cabinet-1", Name: "Cabinet sans rôle"},
	})
	if err != nil {
		t.Fatalf("LoadCabinets() error = %v", err)
	}
	if cabinets[0].Role != "avocat" {
		t.Errorf("Role = %v, want avocat", cabinets[0].Role)
	}
}

func TestRegistry_LoadCabinets_DuplicateID(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.LoadCabinets([]config.CabinetConfig{
		{ID: "cabinet-1"},
		{ID: "cabinet-1"},
	})
	if err == nil {
		t.Fatal("LoadCabinets() error = nil, want duplicate id error")
	}
}

func TestRegistry_GetCabinet(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.LoadCabinets([]config.CabinetConfig{
		{ID: "cabinet-1", Name: "Cabinet Un"},
	}); err != nil {
		t.Fatalf("LoadCabinets() error = %v", err)
	}

	c, ok := registry.GetCabinet("cabinet-1")
	if !ok {
		t.Fatal("GetCabinet(cabinet-1) not found")
	}
	if c.Name != "Cabinet Un" {
		t.Errorf("Name = %v, want Cabinet Un", c.Name)
	}

	if _, ok := registry.GetCabinet("inconnu"); ok {
		t.Error("GetCabinet(inconnu) found, want missing")
	}
}
