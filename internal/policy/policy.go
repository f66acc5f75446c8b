// Package policy decides who may act on which resource. The rules live in
// authz.rego and are evaluated in-process with the OPA rego engine.
package policy

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/open-policy-agent/opa/rego"
)

//go:embed authz.rego
var authzModule string

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Kind string

const (
	KindBus      Kind = "bus"
	KindSchedule Kind = "schedule"
	KindBooking  Kind = "booking"
	KindCustomer Kind = "customer"
	KindDriver   Kind = "driver"
)

type Resource struct {
	Kind    Kind
	OwnerID int64
}

type Request struct {
	Action   Action
	Subject  domain.Principal
	Resource Resource
}

type Authorizer interface {
	Authorize(ctx context.Context, req Request) error
}

type RegoAuthorizer struct {
	query rego.PreparedEvalQuery
}

func NewAuthorizer(ctx context.Context) (*RegoAuthorizer, error) {
	query, err := rego.New(
		rego.Query("data.busbooking.authz.allow"),
		rego.Module("authz.rego", authzModule),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &RegoAuthorizer{query: query}, nil
}

// Authorize returns a domain.ForbiddenError when the policy denies req.
func (a *RegoAuthorizer) Authorize(ctx context.Context, req Request) error {
	input := map[string]any{
		"action": string(req.Action),
		"subject": map[string]any{
			"id":   req.Subject.ID,
			"role": string(req.Subject.Role),
		},
		"resource": map[string]any{
			"kind":     string(req.Resource.Kind),
			"owner_id": req.Resource.OwnerID,
		},
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("evaluate policy: %w", err)
	}
	if !rs.Allowed() {
		return domain.ForbiddenError{Action: string(req.Action), Resource: string(req.Resource.Kind)}
	}
	return nil
}

var _ Authorizer = (*RegoAuthorizer)(nil)
