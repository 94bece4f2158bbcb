package queryir

import "fmt"

// ValidationResult contains the fragment analysis of a WHERE tree.
type ValidationResult struct {
	// IsTransitive indicates every conjunct is usable for inference.
	IsTransitive bool

	// Conjuncts is the number of top-level conjuncts after flattening.
	Conjuncts int

	// Usable is the number of conjuncts Extract would convert.
	Usable int

	// Warnings lists why each unusable conjunct is skipped.
	// Empty when IsTransitive is true.
	Warnings []string
}

// Validate checks whether a WHERE tree lies entirely inside the
// conjunctive comparison fragment.
//
// Trees outside the fragment are still accepted by Extract; the unusable
// parts are simply ignored. Warnings tell the host what inference will
// not see.
//
// Validate is a pure function with no side effects.
func Validate(root Expr) ValidationResult {
	v := &validator{
		warnings: []string{},
	}

	if root == nil {
		v.addWarning("nil expression - nothing to infer from")
		return v.result(0, 0)
	}

	conj := Conjuncts(root)
	usable := 0
	for i, c := range conj {
		if _, err := extractConjunct(i, c); err != nil {
			v.addWarning("%s", err.Error())
			continue
		}
		usable++
	}
	return v.result(len(conj), usable)
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) result(conjuncts, usable int) ValidationResult {
	return ValidationResult{
		IsTransitive: len(v.warnings) == 0,
		Conjuncts:    conjuncts,
		Usable:       usable,
		Warnings:     v.warnings,
	}
}
