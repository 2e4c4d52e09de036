package validation

import "testing"

func TestEmail(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{"a@b.com", true},
		{"user.name@sub.domain.org", true},
		{"not-an-email", false},
		{"", false},
		{"missing@tld", false},
		{"two words@b.com", false},
	}
	for _, c := range cases {
		if got := Email(c.value); got.Valid != c.valid {
			t.Errorf("Email(%q).Valid = %v, want %v (%s)", c.value, got.Valid, c.valid, got.Reason)
		}
	}
}

func TestPhone(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{"+34600123456", true},
		{"+34 600 123 456", true},
		{"0034600123456", true},
		{"34600123456", true},
		{"600-123-456", false}, // 9 digits without a country prefix
		{"+15551234567", true}, // 10+ digit fallback
		{"5551234567", true},
		{"", false},
		{"abc", false},
		{"+34 600 123", false},
	}
	for _, c := range cases {
		if got := Phone(c.value); got.Valid != c.valid {
			t.Errorf("Phone(%q).Valid = %v, want %v (%s)", c.value, got.Valid, c.valid, got.Reason)
		}
	}
}

func TestCode(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{"123456", true},
		{"000000", true},
		{"12a456", false},
		{"12345", false},
		{"1234567", false},
		{"", false},
	}
	for _, c := range cases {
		if got := Code(c.value); got.Valid != c.valid {
			t.Errorf("Code(%q).Valid = %v, want %v", c.value, got.Valid, c.valid)
		}
	}
}

func TestLoginPassword(t *testing.T) {
	if got := LoginPassword("secret1"); !got.Valid {
		t.Errorf("LoginPassword(secret1) invalid: %s", got.Reason)
	}
	if got := LoginPassword("short"); got.Valid {
		t.Error("LoginPassword(short) should be invalid")
	}
	if got := LoginPassword(""); got.Valid {
		t.Error("empty password should be invalid")
	}
}

func TestRegistrationPassword(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{"Str0ng!pass", true},
		{"weakpass", false},   // no upper/digit/symbol
		{"Short1!", false},    // under 8
		{"NOLOWER1!", false},  // no lower case
		{"noupper1!", false},  // no upper case
		{"NoSymbol11", false}, // no symbol
	}
	for _, c := range cases {
		if got := RegistrationPassword(c.value); got.Valid != c.valid {
			t.Errorf("RegistrationPassword(%q).Valid = %v, want %v", c.value, got.Valid, c.valid)
		}
	}

	// The two password policies stay distinct: a password acceptable for
	// login may fail registration.
	if !LoginPassword("secret1").Valid {
		t.Fatal("secret1 should pass the login policy")
	}
	if RegistrationPassword("secret1").Valid {
		t.Fatal("secret1 should fail the registration policy")
	}
}
