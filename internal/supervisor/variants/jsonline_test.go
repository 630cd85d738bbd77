package variants

import "testing"

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantOk  bool
	}{
		{
			name:   "plain text field",
			input:  `{"type":"text","text":"hello there"}`,
			want:   "hello there",
			wantOk: true,
		},
		{
			name:   "nested message content block",
			input:  `{"type":"assistant","message":{"content":[{"type":"text","text":"working on it"}]}}`,
			want:   "working on it",
			wantOk: true,
		},
		{
			name:   "delta text",
			input:  `{"type":"content_block_delta","delta":{"text":"..."}}`,
			want:   "...",
			wantOk: true,
		},
		{
			name:   "summary field",
			input:  `{"event":"progress","summary":"running tests"}`,
			want:   "running tests",
			wantOk: true,
		},
		{
			name:   "tool_use has no text",
			input:  `{"type":"tool_use","tool":"read_file"}`,
			wantOk: false,
		},
		{
			name:   "not json",
			input:  `plain text line`,
			wantOk: false,
		},
		{
			name:   "empty text field ignored",
			input:  `{"type":"text","text":""}`,
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractText([]byte(tt.input))
			if ok != tt.wantOk {
				t.Fatalf("extractText() ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}
