package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveComments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "line comment",
			in:   "int a = 1; // set a\nint b = 2;",
			want: "int a = 1; \nint b = 2;",
		},
		{
			name: "url kept",
			in:   `char *u = "http://example.com"; // link`,
			want: `char *u = "http://example.com"; `,
		},
		{
			name: "colon before triple slash",
			in:   "q:///z",
			want: "q:/",
		},
		{
			name: "block comment across lines is non-greedy",
			in:   "a /* one\ntwo */ b /* three */ c",
			want: "a  b  c",
		},
		{
			name: "whole-line comment and trim",
			in:   "// header\n\nint main() {}\n",
			want: "int main() {}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoveComments(tt.in))
		})
	}
}
