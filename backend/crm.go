// Package backend implements the four simulated tool backends: CRM,
// Document Store, Account System, and Notification Sink. Each is a
// deterministic, mutex-guarded in-memory state machine seeded from a YAML
// fixture, performing no I/O at call time.
package backend

import "sync"

// rothIRAIncomeLimit is the simplified eligibility ceiling used by
// CheckEligibility for the roth_ira product type. The validator enforces
// only structural invariants, not real tax law, so this is a fixed
// illustrative threshold rather than a regulatory constant.
const rothIRAIncomeLimit = 200000

// ClientRecord is one CRM entry, read-only from the engine's perspective.
type ClientRecord struct {
	ClientID         string   `yaml:"client_id"`
	Name             string   `yaml:"name"`
	Age              int      `yaml:"age"`
	Income           int      `yaml:"income"`
	ExistingAccounts []string `yaml:"existing_accounts"`
}

// CRM is a read-only mapping from client_id to ClientRecord, pre-seeded from
// fixture data.
type CRM struct {
	mu      sync.Mutex
	clients map[string]ClientRecord
}

// NewCRM seeds a CRM from the given fixture records.
func NewCRM(records []ClientRecord) *CRM {
	c := &CRM{clients: make(map[string]ClientRecord, len(records))}
	for _, r := range records {
		c.clients[r.ClientID] = r
	}
	return c
}

// Get returns the client record for id, or false if unknown.
func (c *CRM) Get(clientID string) (ClientRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.clients[clientID]
	return r, ok
}

// CheckEligibility evaluates a simplified, structural eligibility rule for
// productType. It reports found=false if clientID is unknown.
func (c *CRM) CheckEligibility(clientID, productType string) (eligible bool, reason string, found bool) {
	r, ok := c.Get(clientID)
	if !ok {
		return false, "", false
	}
	switch productType {
	case "roth_ira":
		if r.Income > rothIRAIncomeLimit {
			return false, "income exceeds roth_ira contribution limit", true
		}
		return true, "eligible", true
	default:
		return true, "no eligibility rule for product type", true
	}
}
