package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nexhelm/workflow-engine/workflow"
)

// Rule is a data-driven structural requirement: "for request family F, a
// task matching description pattern P must be owned by role R." Adding a
// new rule family is a data addition (construct another Rule), not a code
// change.
type Rule struct {
	// Name identifies the rule for diagnostics.
	Name string
	// Condition is an expr-lang boolean expression evaluated against
	// {request_type: string}; it decides whether this rule applies to a
	// given request.
	Condition string
	// DescriptionPattern is a case-insensitive regular expression; the rule
	// is satisfied once some task owned by Role has a matching description.
	DescriptionPattern string
	// Role is the agent that must own the matching (or injected) task.
	Role workflow.AgentID
	// InsertTemplate is a fmt template (one %s verb) used to synthesize the
	// missing task's description, filled with the request's derived
	// account type.
	InsertTemplate string

	program *vm.Program
	regex   *regexp.Regexp
}

// compile compiles the rule's expr-lang condition and description regex
// once, so repeated Apply calls don't re-parse either.
func (r *Rule) compile() error {
	program, err := expr.Compile(r.Condition, expr.Env(map[string]any{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("validator: rule %q: compile condition: %w", r.Name, err)
	}
	re, err := regexp.Compile("(?i)" + r.DescriptionPattern)
	if err != nil {
		return fmt.Errorf("validator: rule %q: compile description pattern: %w", r.Name, err)
	}
	r.program = program
	r.regex = re
	return nil
}

func (r *Rule) appliesTo(requestType string) (bool, error) {
	out, err := expr.Run(r.program, map[string]any{"request_type": requestType})
	if err != nil {
		return false, fmt.Errorf("validator: rule %q: evaluate condition: %w", r.Name, err)
	}
	applies, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("validator: rule %q: condition did not return a boolean", r.Name)
	}
	return applies, nil
}

func (r *Rule) satisfiedBy(tasks []*workflow.Task) bool {
	for _, t := range tasks {
		if t.Owner == r.Role && r.regex.MatchString(t.Description) {
			return true
		}
	}
	return false
}

// DefaultRules is the built-in rule set: IRA/account requests require an
// operations-owned account-creation task.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			Name:               "account_creation_required",
			Condition:          `request_type contains "ira" or request_type contains "account"`,
			DescriptionPattern: `(open|create).*account`,
			Role:               workflow.OperationsAgent,
			InsertTemplate:     "Create %s account for the client",
		},
	}
}

// accountTypePrefixes are stripped from a request_type before deriving the
// account type label used in an injected task's description.
var accountTypePrefixes = []string{"open_", "create_", "new_"}

func deriveAccountType(requestType string) string {
	t := requestType
	for _, prefix := range accountTypePrefixes {
		if strings.HasPrefix(t, prefix) {
			t = strings.TrimPrefix(t, prefix)
			break
		}
	}
	if t == "" {
		return "ACCOUNT"
	}
	return strings.ToUpper(t)
}
