package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSniffImageMIME(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantMIME string
		wantOK   bool
	}{
		{
			name:     "jpeg",
			data:     []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10},
			wantMIME: "image/jpeg",
			wantOK:   true,
		},
		{
			name:     "png",
			data:     []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00},
			wantMIME: "image/png",
			wantOK:   true,
		},
		{
			name:   "gif rejected",
			data:   []byte("GIF89a"),
			wantOK: false,
		},
		{
			name:   "pdf rejected",
			data:   []byte("%PDF-1.4"),
			wantOK: false,
		},
		{
			name:   "empty",
			data:   nil,
			wantOK: false,
		},
		{
			name:   "truncated png header",
			data:   []byte{0x89, 'P', 'N'},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ok := sniffImageMIME(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMIME, mime)
		})
	}
}
