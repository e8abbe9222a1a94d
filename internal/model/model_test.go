package model

import "testing"

func TestTaskStatusIsValid(t *testing.T) {
	valid := []TaskStatus{StatusTodo, StatusInProgress, StatusDone}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	invalid := []TaskStatus{"", "open", "closed", "DONE"}
	for _, s := range invalid {
		if s.IsValid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestPriorityIsValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.IsValid() {
			t.Errorf("expected %q to be valid", p)
		}
	}
	if Priority("urgent").IsValid() {
		t.Error("expected unknown priority to be invalid")
	}
}

func TestRoleIsValid(t *testing.T) {
	if !RoleAdmin.IsValid() || !RoleMember.IsValid() {
		t.Error("expected known roles to be valid")
	}
	if Role("owner").IsValid() {
		t.Error("expected unknown role to be invalid")
	}
}

func TestUserIsAdmin(t *testing.T) {
	var u *User
	if u.IsAdmin() {
		t.Error("nil user must not be admin")
	}
	if (&User{Role: RoleMember}).IsAdmin() {
		t.Error("member must not be admin")
	}
	if !(&User{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin user should be admin")
	}
}
