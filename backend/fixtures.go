package backend

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixtures is the on-disk shape of a backend seed file: one YAML document
// describing the CRM, Document Store, and Account System's starting state
// for a scenario.
type Fixtures struct {
	Clients   []ClientRecord   `yaml:"clients"`
	Documents []DocumentRecord `yaml:"documents"`
	Accounts  []FixtureAccount `yaml:"accounts"`
}

// FixtureAccount is a pre-existing account seeded at load time (e.g. S2's
// client who already holds a Roth IRA).
type FixtureAccount struct {
	Number      string `yaml:"number"`
	ClientID    string `yaml:"client_id"`
	AccountType string `yaml:"account_type"`
}

// LoadFixtures reads and parses a YAML fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backend: read fixtures %s: %w", path, err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("backend: parse fixtures %s: %w", path, err)
	}
	return &f, nil
}

// Backends is the bundle of all four tool backends, constructed together so
// the Account System can be seeded with the same fixture that seeds the CRM.
type Backends struct {
	CRM           *CRM
	Documents     *DocumentStore
	Accounts      *AccountSystem
	Notifications *NotificationSink
}

// NewBackends builds a Backends bundle from parsed Fixtures. notifications
// may be nil only in tests that do not exercise send_notification.
func NewBackends(f *Fixtures, notifications *NotificationSink, now time.Time) *Backends {
	accs := make([]Account, 0, len(f.Accounts))
	for _, a := range f.Accounts {
		accs = append(accs, Account{Number: a.Number, ClientID: a.ClientID, AccountType: a.AccountType, CreatedAt: now})
	}
	return &Backends{
		CRM:           NewCRM(f.Clients),
		Documents:     NewDocumentStore(f.Documents),
		Accounts:      NewAccountSystem(accs),
		Notifications: notifications,
	}
}
