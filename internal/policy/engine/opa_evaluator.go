package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const replayQuery = "data.sessionlifecycle.replay.revoke_user_sessions"

// Default Rego policy: session-only cascade unless the deployment escalates
// account-wide, or the replay arrives from a device that does not match the
// session's recorded fingerprint (a stronger theft signal).
const defaultRegoPolicy = `package sessionlifecycle.replay

default revoke_user_sessions = false

revoke_user_sessions if {
	input.config.escalate_account_wide
}

revoke_user_sessions if {
	input.request.fingerprint != ""
	input.session.fingerprint != ""
	input.request.fingerprint != input.session.fingerprint
}
`

// OPAEvaluator evaluates replay escalation using OPA Rego.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator returns an OPA-based evaluator. policyPath optionally
// overrides the built-in policy with a Rego file; empty uses the default.
func NewOPAEvaluator(policyPath string) (*OPAEvaluator, error) {
	policy := defaultRegoPolicy
	if policyPath != "" {
		b, err := os.ReadFile(policyPath)
		if err != nil {
			return nil, fmt.Errorf("read replay policy: %w", err)
		}
		policy = string(b)
	}
	compiler, err := ast.CompileModules(map[string]string{"replay.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile replay policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// HealthCheck verifies the compiled policy evaluates against a minimal input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.eval(ctx, ReplayInput{})
	return err
}

// EvaluateReplay evaluates the policy for the given input. On evaluation
// failure the deployment escalation flag is returned as a conservative
// fallback, with the error.
func (e *OPAEvaluator) EvaluateReplay(ctx context.Context, in ReplayInput) (ReplayResult, error) {
	escalate, err := e.eval(ctx, in)
	if err != nil {
		return ReplayResult{RevokeUserSessions: in.EscalateAccountWide}, err
	}
	return ReplayResult{RevokeUserSessions: escalate}, nil
}

func (e *OPAEvaluator) eval(ctx context.Context, in ReplayInput) (bool, error) {
	input := map[string]interface{}{
		"config": map[string]interface{}{
			"escalate_account_wide": in.EscalateAccountWide,
		},
		"session": map[string]interface{}{
			"fingerprint": in.SessionFingerprint,
		},
		"request": map[string]interface{}{
			"fingerprint": in.RequestFingerprint,
		},
	}
	q := rego.New(
		rego.Query(replayQuery),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval replay policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("replay policy query returned no result")
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("replay policy returned non-boolean %T", rs[0].Expressions[0].Value)
	}
	return v, nil
}
