// Package validator decides whether an onboarding step may be left.
package validator

import (
	"errors"
	"strings"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
)

var step1Fields = []domain.FieldPath{
	"entity.legalName",
	"entity.taxId",
	"entity.type",
	"entity.address",
	"entity.phone",
	"entity.childBracket",
	"contractor.name",
	"contractor.nationalId",
	"contractor.role",
	"contractor.phone",
	"contractor.email",
	"contractor.secret",
	"administrativeContact.name",
	"administrativeContact.billingEmail",
	"planTier",
}

var principalFields = []domain.FieldPath{
	"delegate.principal.name",
	"delegate.principal.nationalId",
	"delegate.principal.birthDate",
	"delegate.principal.phone",
	"delegate.principal.email",
	"delegate.principal.secret",
	"delegate.principal.role",
}

var substituteFields = []domain.FieldPath{
	"delegate.substitute.name",
	"delegate.substitute.nationalId",
	"delegate.substitute.birthDate",
	"delegate.substitute.phone",
	"delegate.substitute.email",
	"delegate.substitute.secret",
	"delegate.substitute.role",
}

var step3Fields = []domain.FieldPath{
	"payment.method",
	"payment.holderName",
	"payment.acceptTerms",
}

// RequiredFields returns the required paths of step for the draft as it is now.
// The step 2 set depends on the substitute flag and is rebuilt on every call.
func RequiredFields(step domain.State, draft *domain.FormDraft) []domain.FieldPath {
	switch step {
	case domain.StateStep1Entity:
		return append([]domain.FieldPath(nil), step1Fields...)
	case domain.StateStep2Delegate:
		fields := append([]domain.FieldPath(nil), principalFields...)
		if draft != nil && draft.AddOns.IncludeSubstituteDelegate {
			fields = append(fields, substituteFields...)
		}
		return fields
	case domain.StateStep3Payment:
		return append([]domain.FieldPath(nil), step3Fields...)
	default:
		return nil
	}
}

// Result is the outcome of validating one step.
type Result struct {
	Step    domain.State
	Missing []domain.FieldPath
}

func (r Result) Valid() bool {
	return len(r.Missing) == 0
}

// Err returns a *domain.ValidationError when fields are missing.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &domain.ValidationError{Step: r.Step, Missing: r.Missing}
}

// Validate checks every required path of step with the "filled" rule on the
// domain structs. Only the paths RequiredFields returns for the draft at call
// time are checked. payment is only read on step 3.
func Validate(step domain.State, draft *domain.FormDraft, payment *domain.PaymentDetails) Result {
	result := Result{Step: step}
	required := RequiredFields(step, draft)
	if len(required) == 0 {
		return result
	}

	failed := make(map[domain.FieldPath]struct{}, len(required))
	if step == domain.StateStep3Payment {
		if payment == nil {
			payment = &domain.PaymentDetails{}
		}
		collect(failed, paymentPrefix, validate.StructPartial(payment, goPaths(required)...))
	} else {
		target := &domain.FormDraft{}
		if draft != nil {
			target = draft.Clone()
		}
		if target.Delegate.Substitute == nil {
			target.Delegate.Substitute = &domain.DelegatePerson{}
		}
		collect(failed, "", validate.StructPartial(target, goPaths(required)...))
	}

	for _, path := range required {
		if _, ok := failed[path]; ok {
			result.Missing = append(result.Missing, path)
		}
	}
	return result
}

// collect records the failing paths of err. Namespaces carry json names behind
// the root type name, which becomes prefix.
func collect(failed map[domain.FieldPath]struct{}, prefix string, err error) {
	if err == nil {
		return
	}
	var verrs govalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		if prefix != "" {
			ns = prefix + "." + ns
		}
		failed[domain.FieldPath(ns)] = struct{}{}
	}
}
