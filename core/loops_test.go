package core

import "testing"

func TestDetectCycle(t *testing.T) {
	cases := []struct {
		name    string
		history []string
		want    []string
	}{
		{"empty", nil, nil},
		{"too short", []string{"a", "b", "a"}, nil},
		{"pair", []string{"x", "a", "b", "a", "b"}, []string{"a", "b"}},
		{"triple", []string{"a", "b", "c", "a", "b", "c"}, []string{"a", "b", "c"}},
		{"bounce ignored", []string{"a", "a", "a", "a"}, nil},
		{"shortest period wins", []string{"a", "b", "a", "b", "a", "b", "a", "b"}, []string{"a", "b"}},
		{"no repeat", []string{"a", "b", "c", "d", "e", "f"}, nil},
		{"repeat not at tail", []string{"a", "b", "a", "b", "c", "d"}, nil},
		{
			"long period ignored",
			[]string{
				"a", "b", "c", "d", "e", "f", "g", "h", "i",
				"a", "b", "c", "d", "e", "f", "g", "h", "i",
			},
			nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := detectCycle(tc.history)
			if tc.want == nil {
				if ok {
					t.Fatalf("detectCycle(%v) = %v, want none", tc.history, got)
				}
				return
			}
			if !ok || len(got) != len(tc.want) {
				t.Fatalf("detectCycle(%v) = %v, %v; want %v", tc.history, got, ok, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("detectCycle(%v) = %v, want %v", tc.history, got, tc.want)
				}
			}
		})
	}
}

func TestDetectCycleCopiesResult(t *testing.T) {
	history := []string{"a", "b", "a", "b"}
	loop, ok := detectCycle(history)
	if !ok {
		t.Fatal("cycle not found")
	}
	loop[0] = "mutated"
	if history[2] != "a" {
		t.Fatal("detectCycle aliases the caller's history")
	}
}
