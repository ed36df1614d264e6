package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"garbage", true, true},
		{"garbage", false, false},
		{" true ", false, true},
	}

	for _, tt := range tests {
		t.Setenv("CARECOVER_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("CARECOVER_TEST_BOOL", tt.defaultValue); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue int
		want         int
	}{
		{"", 42, 42},
		{"7", 0, 7},
		{" 13 ", 0, 13},
		{"-5", 0, -5},
		{"not a number", 42, 42},
	}

	for _, tt := range tests {
		t.Setenv("CARECOVER_TEST_INT", tt.value)
		if got := ParseIntEnv("CARECOVER_TEST_INT", tt.defaultValue); got != tt.want {
			t.Errorf("ParseIntEnv(%q, %d) = %d, want %d", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}
