package main

import "testing"

func TestCutDetach(t *testing.T) {
	for _, tt := range []struct {
		in     string
		out    string
		detach bool
	}{
		{"hello", "hello", false},
		{"hi\x04there", "hi", true},
		{"\x04", "", true},
		{"", "", false},
	} {
		out, detach := cutDetach([]byte(tt.in))
		if string(out) != tt.out || detach != tt.detach {
			t.Errorf("cutDetach(%q) = %q, %v; want %q, %v", tt.in, out, detach, tt.out, tt.detach)
		}
	}
}
