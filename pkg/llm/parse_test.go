package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "bare object",
			content: `{"a": 1}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "markdown fenced",
			content: "Here you go:\n```json\n{\"a\": 1}\n```\nHope that helps.",
			want:    `{"a": 1}`,
		},
		{
			name:    "prose wrapped",
			content: `Sure! {"a": {"b": 2}} That is my answer.`,
			want:    `{"a": {"b": 2}}`,
		},
		{
			name:    "no object",
			content: "I refuse to answer in JSON.",
			wantErr: true,
		},
		{
			name:    "reversed braces",
			content: "} nothing here {",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
