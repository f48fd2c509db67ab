package loam

import "testing"

func TestSentinelErrors_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrBufferFull", ErrBufferFull, "write buffer full: multipart upload disabled and part size limit reached"},
		{"ErrInvalidRange", ErrInvalidRange, "invalid range: read exceeds object bounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("%s.Error() = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
