package backend

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nexhelm/workflow-engine/toolerrors"
)

// startingAccountNumber is the first number issued for any account type.
const startingAccountNumber = 1000

// Account is one issued account.
type Account struct {
	Number      string
	ClientID    string
	AccountType string
	CreatedAt   time.Time
}

// AccountSystem generates monotonically increasing account numbers of the
// form "<ACCOUNT_TYPE>-<N>" and enforces at most one account of a given type
// per client. The check-and-issue sequence runs under a single mutex so
// concurrent workflows racing to open the same (client, type) account never
// both succeed (see P5).
type AccountSystem struct {
	mu       sync.Mutex
	next     map[string]int                  // account_type -> next number
	byClient map[string]map[string]string    // client_id -> account_type -> number
	accounts map[string]Account              // number -> account
}

// NewAccountSystem seeds an AccountSystem from pre-existing accounts (e.g.
// fixture data for a client who already holds one).
func NewAccountSystem(existing []Account) *AccountSystem {
	a := &AccountSystem{
		next:     make(map[string]int),
		byClient: make(map[string]map[string]string),
		accounts: make(map[string]Account),
	}
	for _, acc := range existing {
		a.seedLocked(acc)
	}
	return a
}

func (a *AccountSystem) seedLocked(acc Account) {
	if a.byClient[acc.ClientID] == nil {
		a.byClient[acc.ClientID] = map[string]string{}
	}
	a.byClient[acc.ClientID][acc.AccountType] = acc.Number
	a.accounts[acc.Number] = acc

	next := startingAccountNumber
	if idx := strings.LastIndex(acc.Number, "-"); idx >= 0 {
		if n, err := strconv.Atoi(acc.Number[idx+1:]); err == nil && n >= startingAccountNumber {
			next = n + 1
		}
	}
	if next > a.next[acc.AccountType] {
		a.next[acc.AccountType] = next
	}
}

// OpenAccount issues a new account of accountType for clientID, or returns a
// KindConflict ToolError naming the pre-existing account number if one
// already exists.
func (a *AccountSystem) OpenAccount(clientID, accountType string, now time.Time) (Account, *toolerrors.ToolError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.byClient[clientID][accountType]; ok {
		return Account{}, toolerrors.Errorf(toolerrors.KindConflict,
			"account already exists: %s", existing)
	}

	if a.next[accountType] == 0 {
		a.next[accountType] = startingAccountNumber
	}
	number := fmt.Sprintf("%s-%d", accountType, a.next[accountType])
	a.next[accountType]++

	acc := Account{Number: number, ClientID: clientID, AccountType: accountType, CreatedAt: now}
	if a.byClient[clientID] == nil {
		a.byClient[clientID] = map[string]string{}
	}
	a.byClient[clientID][accountType] = number
	a.accounts[number] = acc
	return acc, nil
}

// Lookup returns the account numbered number, if any.
func (a *AccountSystem) Lookup(number string) (Account, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[number]
	return acc, ok
}
