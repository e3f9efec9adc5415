package glsl

import "testing"

func TestDefine(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"after version",
			"#version 330\nvoid main() {}\n",
			"#version 330\n#define SEEDS 4\nvoid main() {}\n",
		},
		{
			"leading blank lines",
			"\n\n#version 330\nuniform float x;\n",
			"\n\n#version 330\n#define SEEDS 4\nuniform float x;\n",
		},
		{
			"no version",
			"void main() {}\n",
			"#define SEEDS 4\nvoid main() {}\n",
		},
		{
			"version only",
			"#version 330",
			"#version 330\n#define SEEDS 4\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Define(tc.src, "SEEDS", 4); got != tc.want {
				t.Errorf("Define() = %q, want %q", got, tc.want)
			}
		})
	}
}
