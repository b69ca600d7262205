package domain

import (
	"errors"
	"testing"
)

func TestUser_NormalizeAndValidate(t *testing.T) {
	u := &User{Name: "  Ann ", Email: "  A@X.com ", PasswordHash: "hash"}
	u.Normalize()

	if u.Name != "Ann" || u.Email != "a@x.com" || u.Role != RoleUser {
		t.Fatalf("unexpected normalized user: %+v", u)
	}
	if err := u.Validate(); err != nil {
		t.Fatalf("expected valid user, got %v", err)
	}

	u.Role = Role("root")
	err := u.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "role" {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestUserPatch_Validate(t *testing.T) {
	if err := (UserPatch{}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty patch should fail validation, got %v", err)
	}

	blank := "   "
	p := UserPatch{Name: &blank}
	p.Normalize()
	if err := p.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank name should fail validation, got %v", err)
	}

	bad := Role("root")
	if err := (UserPatch{Role: &bad}).Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad role should fail validation, got %v", err)
	}

	banned := true
	if err := (UserPatch{IsBanned: &banned}).Validate(); err != nil {
		t.Fatalf("ban patch should be valid, got %v", err)
	}
}

func TestUser_ProfileHasNoPassword(t *testing.T) {
	u := &User{ID: "1", Name: "Ann", Email: "a@x.com", PasswordHash: "secret-hash", Role: RoleUser}
	p := u.Profile()
	if p.Email != u.Email || p.ID != u.ID || p.Role != u.Role {
		t.Fatalf("unexpected profile: %+v", p)
	}
}
