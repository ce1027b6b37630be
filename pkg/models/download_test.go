package models

import "testing"

func TestLooksLikePDF(t *testing.T) {
	cases := []struct {
		name string
		body []byte
		want bool
	}{
		{"valid magic", []byte("%PDF-1.4 rest of file"), true},
		{"too short", []byte("%PD"), false},
		{"html", []byte("<!DOCTYPE html><html>"), false},
		{"empty", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LooksLikePDF(tc.body); got != tc.want {
				t.Errorf("LooksLikePDF(%q) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}
