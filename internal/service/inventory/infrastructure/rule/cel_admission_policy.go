// internal/service/inventory/infrastructure/rule/cel_admission_policy.go
package rule

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"stockd/internal/service/inventory/port"
)

// CelAdmissionPolicy 是 port.AdmissionPolicy 的 CEL 实现
// 准入规则以表达式形式下发在配置里，改规则不需要改代码
// 表达式在构造时编译一次，求值路径上只剩 Eval
type CelAdmissionPolicy struct {
	program cel.Program
}

// NewCelAdmissionPolicy 编译准入表达式
// 表达式必须返回 bool；编译失败视为配置错误直接返回
func NewCelAdmissionPolicy(expression string) (*CelAdmissionPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("quantity", cel.IntType),
		cel.Variable("reference_type", cel.StringType),
		cel.Variable("reference_id", cel.StringType),
		cel.Variable("priority", cel.StringType),
		cel.Variable("has_expiry", cel.BoolType),
		cel.Variable("max_per_reservation", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid admission rule %q: %w", expression, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL program: %w", err)
	}
	return &CelAdmissionPolicy{program: program}, nil
}

// Admit 对一条预占请求求值
func (p *CelAdmissionPolicy) Admit(fact port.AdmissionFact) (bool, error) {
	out, _, err := p.program.Eval(map[string]interface{}{
		"quantity":            fact.Quantity,
		"reference_type":      fact.ReferenceType,
		"reference_id":        fact.ReferenceID,
		"priority":            fact.Priority,
		"has_expiry":          fact.HasExpiry,
		"max_per_reservation": fact.MaxPerReservation,
	})
	if err != nil {
		return false, fmt.Errorf("admission rule evaluation failed: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("admission rule returned %T, want bool", out.Value())
	}
	return result, nil
}
