package storage

import (
	"errors"
	"testing"

	"webmail/models"
)

func TestUserStoreCreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	store := NewUserStore(db, 0)

	user := &models.User{
		Email:     "Carol@Example.com",
		Username:  "carol",
		FirstName: "Carol",
		LastName:  "Jones",
	}
	if err := store.Create(user, "password123"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create did not assign an ID")
	}
	if user.EmailQuota != models.DefaultEmailQuota {
		t.Errorf("EmailQuota = %d, want default", user.EmailQuota)
	}
	if !user.IsActive {
		t.Error("new user not active")
	}

	// Address is normalized on the way in; lookups are too.
	got, err := store.GetByEmail("carol@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetByEmail ID = %s, want %s", got.ID, user.ID)
	}

	if !store.VerifyPassword(got, "password123") {
		t.Error("correct password rejected")
	}
	if store.VerifyPassword(got, "wrong-password") {
		t.Error("wrong password accepted")
	}

	// Duplicate registration is refused.
	dup := &models.User{Email: "carol@example.com", Username: "carol2", FirstName: "C", LastName: "J"}
	if err := store.Create(dup, "password123"); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestUserStoreMissing(t *testing.T) {
	db := newTestDB(t)
	store := NewUserStore(db, 0)

	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByEmail("nope@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByEmail missing: err = %v, want ErrNotFound", err)
	}
}

func TestUserStoreUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	store := NewUserStore(db, 0)

	user := &models.User{Email: "dave@example.com", Username: "dave", FirstName: "D", LastName: "E"}
	if err := store.Create(user, "oldpassword"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.UpdatePassword(user.ID, "newpassword"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}

	got, err := store.Get(user.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if store.VerifyPassword(got, "oldpassword") {
		t.Error("old password still accepted")
	}
	if !store.VerifyPassword(got, "newpassword") {
		t.Error("new password rejected")
	}
}

func TestUserStoreSetQuota(t *testing.T) {
	db := newTestDB(t)
	store := NewUserStore(db, 0)

	user := &models.User{Email: "erin@example.com", Username: "erin", FirstName: "E", LastName: "F"}
	if err := store.Create(user, "password123"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.SetQuota(user.ID, 2048); err != nil {
		t.Fatalf("SetQuota: %v", err)
	}
	got, _ := store.Get(user.ID)
	if got.EmailQuota != 2048 {
		t.Errorf("EmailQuota = %d, want 2048", got.EmailQuota)
	}

	if err := store.SetQuota(user.ID, -1); err == nil {
		t.Error("negative quota accepted")
	}
	if err := store.SetQuota(user.ID, models.MaxEmailQuota+1); err == nil {
		t.Error("oversized quota accepted")
	}
}
