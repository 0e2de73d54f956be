package codec

import "testing"

func TestRepairDiagram(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "broken edge label",
			in:   `A -->|"X"|> B`,
			want: `A -->|"X"| B`,
		},
		{
			name: "multiple defects",
			in:   "A -->|\"X\"|> B\nB -->|\"Y\"|> C",
			want: "A -->|\"X\"| B\nB -->|\"Y\"| C",
		},
		{
			name: "clean input unchanged",
			in:   `A -->|"X"| B`,
			want: `A -->|"X"| B`,
		},
		{
			name: "plain arrows unchanged",
			in:   "flowchart TD\n    A --> B",
			want: "flowchart TD\n    A --> B",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RepairDiagram(tc.in); got != tc.want {
				t.Fatalf("RepairDiagram(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
