package cabinet

import (
	"fmt"

	"github.com/nmorel/lexidraft/internal/config"
)

const defaultRole = "avocat"

// Registry manages cabinet instances
type Registry struct {
	cabinets map[string]*Cabinet
}

// NewRegistry creates a new cabinet registry
func NewRegistry() *Registry {
	return &Registry{
		cabinets: make(map[string]*Cabinet),
	}
}

// LoadCabinets loads cabinets from configuration
func (r *Registry) LoadCabinets(configs []config.CabinetConfig) ([]*Cabinet, error) {
	var cabinets []*Cabinet

	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("cabinet without id in configuration")
		}
		if _, exists := r.cabinets[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate cabinet id %s", cfg.ID)
		}

		apiKeys := make([]APIKey, len(cfg.APIKeys))
		for i, keyCfg := range cfg.APIKeys {
			apiKeys[i] = APIKey{
				KeyHash:     keyCfg.KeyHash,
				Description: keyCfg.Description,
			}
		}

		role := cfg.Role
		if role == "" {
			role = defaultRole
		}

		cab := &Cabinet{
			ID:      cfg.ID,
			Name:    cfg.Name,
			Role:    role,
			APIKeys: apiKeys,
		}

		cabinets = append(cabinets, cab)
		r.cabinets[cfg.ID] = cab
	}

	return cabinets, nil
}

// GetCabinet retrieves a cabinet by ID
func (r *Registry) GetCabinet(id string) (*Cabinet, bool) {
	c, ok := r.cabinets[id]
	return c, ok
}

// All returns every registered cabinet.
func (r *Registry) All() []*Cabinet {
	out := make([]*Cabinet, 0, len(r.cabinets))
	for _, c := range r.cabinets {
		out = append(out, c)
	}
	return out
}
