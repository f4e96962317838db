package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// ValidationSeverity indicates whether a finding blocks the pipeline or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks assembly
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ID       ID                 // which primitive (NoID if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.ID == NoID {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] primitive %d: %s", e.Severity, e.ID, e.Message)
}

// ValidationResult separates blocking errors from warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// HelperResolver reports whether a helper ID still resolves.
type HelperResolver func(HelperID) bool

// Validate runs the structural checks: name table consistency and, when
// resolve is non-nil, dangling helper references (warnings, since helper
// lookups are soft failures).
func Validate(s *Scene, resolve HelperResolver) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNames(s)...)
	if resolve != nil {
		errs = append(errs, validateHelpers(s, resolve)...)
	}
	return errs
}

// ValidateAll runs the structural and geometric tiers.
func ValidateAll(s *Scene, resolve HelperResolver) ValidationResult {
	var result ValidationResult
	findings := Validate(s, resolve)
	findings = append(findings, validateGeometry(s)...)
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, f)
		} else {
			result.Errors = append(result.Errors, f)
		}
	}
	return result
}

func validateNames(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, p := range s.Primitives() {
		if p.Name == "" {
			errs = append(errs, ValidationError{ID: p.ID, Message: "empty name", Severity: SeverityError})
			continue
		}
		if id, ok := s.names[p.Name]; !ok || id != p.ID {
			errs = append(errs, ValidationError{
				ID:       p.ID,
				Message:  fmt.Sprintf("name %q is not indexed to this primitive", p.Name),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func validateHelpers(s *Scene, resolve HelperResolver) []ValidationError {
	var errs []ValidationError
	for _, p := range s.Primitives() {
		refs := map[string][]HelperID{"pin": p.Pins, "cone": p.Cones, "cut cube": p.CutCubes}
		for _, role := range []string{"pin", "cone", "cut cube"} {
			for _, h := range refs[role] {
				if !resolve(h) {
					errs = append(errs, ValidationError{
						ID:       p.ID,
						Message:  fmt.Sprintf("%s helper %d no longer exists", role, h),
						Severity: SeverityWarning,
					})
				}
			}
		}
	}
	return errs
}

func validateGeometry(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, p := range s.Primitives() {
		if r := p.Radius(); !(r > 0) {
			errs = append(errs, ValidationError{
				ID:       p.ID,
				Message:  fmt.Sprintf("radius must be positive, got %g", r),
				Severity: SeverityError,
			})
		}
		if c, ok := p.Cylinder(); ok {
			if !(c.Length > 0) {
				errs = append(errs, ValidationError{
					ID:       p.ID,
					Message:  fmt.Sprintf("cylinder length must be positive, got %g", c.Length),
					Severity: SeverityError,
				})
			}
			if c.Double != nil && !(c.Double.Scale > 0) {
				errs = append(errs, ValidationError{
					ID:       p.ID,
					Message:  "double bond scale must be positive",
					Severity: SeverityError,
				})
			}
		}
		if q := p.Transform.Rotation; q != (Transform{}).Rotation {
			if n := quat.Abs(quat.Number(q)); math.Abs(n-1) > 1e-6 {
				errs = append(errs, ValidationError{
					ID:       p.ID,
					Message:  fmt.Sprintf("rotation is not a unit quaternion (|q| = %.6f)", n),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}
