package services

import "testing"

func TestCreateUserDefaultsNameFromEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testLogger())

	user, err := svc.CreateUser(SignupInput{Email: "dana@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Name != "dana" {
		t.Errorf("expected name from email local part, got %q", user.Name)
	}

	_, err = svc.CreateUser(SignupInput{Email: "dana@example.com", Password: "secret1"})
	wantKind(t, err, KindConflict)

	_, err = svc.CreateUser(SignupInput{Email: "not-an-email", Password: "secret1"})
	wantKind(t, err, KindValidation)
}

func TestLoginUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testLogger())
	if _, err := svc.CreateUser(SignupInput{Email: "dana@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user, err := svc.LoginUser("dana@example.com", "secret1")
	if err != nil {
		t.Fatalf("LoginUser failed: %v", err)
	}
	if user.Email != "dana@example.com" {
		t.Errorf("unexpected user: %q", user.Email)
	}

	// Missing account and wrong password are indistinguishable.
	_, wrongPass := svc.LoginUser("dana@example.com", "nope")
	_, noAccount := svc.LoginUser("ghost@example.com", "nope")
	wantKind(t, wrongPass, KindForbidden)
	wantKind(t, noAccount, KindForbidden)
	if wrongPass.Error() != noAccount.Error() {
		t.Errorf("login failures must share one message: %q vs %q", wrongPass.Error(), noAccount.Error())
	}
}

func TestUpdateUserEmailConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testLogger())
	first, err := svc.CreateUser(SignupInput{Email: "one@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := svc.CreateUser(SignupInput{Email: "two@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	_, err = svc.UpdateUserEmail(first.ID, "two@example.com")
	wantKind(t, err, KindConflict)

	updated, err := svc.UpdateUserEmail(first.ID, "uno@example.com")
	if err != nil {
		t.Fatalf("UpdateUserEmail failed: %v", err)
	}
	if updated.Email != "uno@example.com" {
		t.Errorf("expected updated email, got %q", updated.Email)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testLogger())
	user, err := svc.CreateUser(SignupInput{Email: "dana@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	_, err = svc.UpdateUserPassword(user.ID, "wrong", "longenough")
	wantKind(t, err, KindForbidden)

	_, err = svc.UpdateUserPassword(user.ID, "secret1", "tiny")
	wantKind(t, err, KindValidation)

	if _, err := svc.UpdateUserPassword(user.ID, "secret1", "longenough"); err != nil {
		t.Fatalf("UpdateUserPassword failed: %v", err)
	}
	if _, err := svc.LoginUser("dana@example.com", "longenough"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}
