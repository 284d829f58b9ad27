package main

import (
	"context"
	"fmt"
)

// NoVariantError is returned when a requested subject has no active variant.
// The whole assembly is abandoned.
type NoVariantError struct {
	Code SubjectCode
}

func (e *NoVariantError) Error() string {
	return fmt.Sprintf("No variants for subject %s", e.Code)
}

type Assembler struct {
	bank     Bank
	required []SubjectCode
	pick     func(n int) int
}

func NewAssembler(bank Bank, required []SubjectCode) *Assembler {
	return &Assembler{bank: bank, required: required, pick: drawIndex}
}

// Assemble picks one active variant per subject, required subjects first and
// electives after them in the order given, and returns the loaded trees.
func (a *Assembler) Assemble(ctx context.Context, electives []SubjectCode) ([]Subject, error) {
	codes := make([]SubjectCode, 0, len(a.required)+len(electives))
	codes = append(codes, a.required...)
	codes = append(codes, electives...)

	out := make([]Subject, 0, len(codes))
	for _, code := range codes {
		variants, err := a.bank.ActiveVariants(ctx, code)
		if err != nil {
			return nil, err
		}
		if len(variants) == 0 {
			return nil, &NoVariantError{Code: code}
		}
		chosen := variants[a.pick(len(variants))]

		tree, err := a.bank.SubjectTree(ctx, chosen.ID)
		if err != nil {
			return nil, err
		}
		if tree == nil {
			// deleted between the two reads
			return nil, &NoVariantError{Code: code}
		}
		out = append(out, *tree)
	}
	return out, nil
}
