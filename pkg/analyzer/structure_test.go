package analyzer

import "testing"

func TestAnalyzeStructure(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Structure
	}{
		{
			name: "markdown with headings and lists",
			in:   "# Title\n\n- first\n- second\n1. third\n\nbody text\n",
			want: Structure{HeadingCount: 1, ListCount: 3, LineCount: 7, HasHeadings: true, HasLists: true},
		},
		{
			name: "plain prose",
			in:   "just text\nmore text",
			want: Structure{LineCount: 2},
		},
		{
			name: "hash without space is not a heading",
			in:   "#tag line\n",
			want: Structure{LineCount: 1},
		},
		{
			name: "indented bullets count",
			in:   "  - nested item\n\t* starred\n",
			want: Structure{ListCount: 2, LineCount: 2, HasLists: true},
		},
		{
			name: "empty content",
			in:   "",
			want: Structure{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analyzeStructure(tt.in)
			if *got != tt.want {
				t.Errorf("analyzeStructure = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
