package main

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestAssemble(t *testing.T) {
	db := seededDB(t)
	extra := Subject{Name: SubjectHistory, Variant: 2, IsActive: true}
	if err := db.Create(&extra).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}

	asm := NewAssembler(NewBank(db), DefaultRequiredSubjects)
	var seen []int
	asm.pick = func(n int) int {
		seen = append(seen, n)
		return n - 1
	}

	got, err := asm.Assemble(context.Background(), []SubjectCode{SubjectMath})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	wantCodes := []SubjectCode{SubjectHistory, SubjectReadingLiteracy, SubjectMathLiteracy, SubjectMath}
	if len(got) != len(wantCodes) {
		t.Fatalf("got %d subjects, want %d", len(got), len(wantCodes))
	}
	for i, s := range got {
		if s.Name != wantCodes[i] {
			t.Errorf("subject %d = %s, want %s", i, s.Name, wantCodes[i])
		}
	}
	// HIS has two active variants, MAT only one (v2 is inactive)
	if want := []int{2, 1, 1, 1}; !slices.Equal(seen, want) {
		t.Errorf("pick sizes = %v, want %v", seen, want)
	}
	if got[0].Variant != 2 || got[3].Variant != 1 {
		t.Errorf("variants = %d, %d", got[0].Variant, got[3].Variant)
	}
	if len(got[1].Questions) != 1 || len(got[1].Questions[0].Answers) != 2 {
		t.Errorf("RL tree not loaded: %+v", got[1])
	}
}

func TestAssembleNoVariant(t *testing.T) {
	asm := NewAssembler(NewBank(seededDB(t)), DefaultRequiredSubjects)

	_, err := asm.Assemble(context.Background(), []SubjectCode{SubjectPhysics})
	var nv *NoVariantError
	if !errors.As(err, &nv) {
		t.Fatalf("err = %v, want *NoVariantError", err)
	}
	if nv.Code != SubjectPhysics || nv.Error() != "No variants for subject PHY" {
		t.Errorf("got %q", nv.Error())
	}
}

func TestAssembleMissingRequired(t *testing.T) {
	asm := NewAssembler(NewBank(newTestDB(t)), DefaultRequiredSubjects)
	_, err := asm.Assemble(context.Background(), nil)
	var nv *NoVariantError
	if !errors.As(err, &nv) || nv.Code != SubjectHistory {
		t.Fatalf("err = %v, want no variants for HIS", err)
	}
}

func TestSubjectDTOHidesAnswerKey(t *testing.T) {
	asm := NewAssembler(NewBank(seededDB(t)), DefaultRequiredSubjects)
	asm.pick = func(int) int { return 0 }
	subjects, err := asm.Assemble(context.Background(), nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	raw, err := json.Marshal(toSubjectDTO(subjects[0]))
	if err != nil {
		t.Fatal(err)
	}
	for _, leaked := range []string{"is_correct", "correct_for_left", "IsCorrect", "CorrectFor"} {
		if strings.Contains(string(raw), leaked) {
			t.Errorf("DTO leaks %q: %s", leaked, raw)
		}
	}
	if !strings.Contains(string(raw), `"left_side_1":"L1"`) {
		t.Errorf("matching prompts missing: %s", raw)
	}
}
