package bot

import "bytes"

var (
	jpegMagic = []byte{0xff, 0xd8, 0xff}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
)

// sniffImageMIME identifies the photo format from its magic bytes. Only JPEG
// and PNG are accepted; everything else is rejected before it reaches the
// vision model.
func sniffImageMIME(data []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(data, jpegMagic):
		return "image/jpeg", true
	case bytes.HasPrefix(data, pngMagic):
		return "image/png", true
	default:
		return "", false
	}
}
