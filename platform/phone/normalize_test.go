package phone

import "testing"

func TestDigits(t *testing.T) {
	if got := Digits("(512) 555-0100 ext. 9"); got != "51255501009" {
		t.Fatalf("expected 51255501009, got %q", got)
	}
	if got := Digits("no digits"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestNormalizeDigits(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+1 (512) 555-0100", "15125550100"},
		{"512-555-0100", "15125550100"},
		{"15125550100", "15125550100"},
		{"5550100", "5550100"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range cases {
		if got := NormalizeDigits(tc.in); got != tc.want {
			t.Fatalf("NormalizeDigits(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestValidateTransferNumber(t *testing.T) {
	if got := ValidateTransferNumber("555-1234"); got != "" {
		t.Fatalf("expected short number rejected, got %q", got)
	}
	if got := ValidateTransferNumber("(512) 555-0100"); got != "5125550100" {
		t.Fatalf("expected 5125550100, got %q", got)
	}
	if got := ValidateTransferNumber("+1 512 555 0100"); got != "15125550100" {
		t.Fatalf("expected 15125550100, got %q", got)
	}
}
