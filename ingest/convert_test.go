package ingest_test

import (
	"testing"

	"github.com/fwojciec/docindex/ingest"
	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		file string
		in   string
		want string
	}{
		{
			name: "markdown passes through",
			file: "a.md",
			in:   "# A\n\nbody",
			want: "# A\n\nbody",
		},
		{
			name: "text gets a title from the file name",
			file: "dir/release-notes_v2.txt",
			in:   "Fixed bugs.",
			want: "# Release Notes V2\n\nFixed bugs.",
		},
		{
			name: "notebook cells",
			file: "nb.ipynb",
			in: `{"metadata":{"kernelspec":{"language":"python"}},"cells":[
{"cell_type":"markdown","source":["# Analysis\n","Intro."]},
{"cell_type":"code","source":"print(1)"},
{"cell_type":"code","source":[]},
{"cell_type":"raw","source":"raw text"}]}`,
			want: "# Analysis\nIntro.\n\n```python\nprint(1)\n```\n\nraw text",
		},
		{
			name: "notebook language from language_info",
			file: "nb.ipynb",
			in:   `{"metadata":{"language_info":{"name":"julia"}},"cells":[{"cell_type":"code","source":"x = 1"}]}`,
			want: "```julia\nx = 1\n```",
		},
		{
			name: "csv table",
			file: "data/prices.csv",
			in:   "item,price\napple,1\npipe|fitting\n",
			want: "# prices\n\n| item | price |\n| --- | --- |\n| apple | 1 |\n| pipe\\|fitting |  |",
		},
		{
			name: "csv with only a header passes through",
			file: "h.csv",
			in:   "a,b\n",
			want: "a,b\n",
		},
		{
			name: "json object keys in document order",
			file: "conf.json",
			in:   `{"zeta": 1, "alpha": {"x": true}}`,
			want: "# conf.json\n\n- **zeta**: 1\n\n## alpha\n\n```json\n{\n  \"x\": true\n}\n```",
		},
		{
			name: "json array",
			file: "list.json",
			in:   `[1, 2]`,
			want: "# list.json\n\n```json\n[\n  1,\n  2\n]\n```",
		},
		{
			name: "invalid json passes through",
			file: "bad.json",
			in:   `{nope`,
			want: `{nope`,
		},
		{
			name: "toml",
			file: "cfg.toml",
			in:   "title = \"x\"\n",
			want: "# cfg.toml\n\n- **title**: x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ingest.Convert(tt.in, tt.file))
		})
	}
}
