package kittygfx

// base64Table maps each byte to its 6-bit value, 0xff for "skip" (any
// non-alphabet byte, including whitespace interleaved by upstream wrapping),
// and 0xfe for '=' (padding / end of stream). Built once at init time rather
// than computed per-decode, matching the bulk-table style the decoder needs
// to stay allocation-free on the hot path.
var base64Table [256]byte

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func init() {
	for i := range base64Table {
		base64Table[i] = 0xff
	}
	for i := 0; i < len(base64Alphabet); i++ {
		base64Table[base64Alphabet[i]] = byte(i)
	}
	base64Table['='] = 0xfe
}

// base64Decode decodes standard base64, tolerant of embedded whitespace or
// any other non-alphabet byte (skipped, not an error) because upstream
// strings are whitespace-wrapped across escape-sequence chunks. Decoding
// stops at the first invalid quartet: '=' seen before the quartet has at
// least two real characters, or trailing data after a terminating '='.
func base64Decode(s []byte) []byte {
	out := make([]byte, 0, len(s)*3/4+3)
	var quartet [4]byte
	n := 0
	for i := 0; i < len(s); i++ {
		v := base64Table[s[i]]
		if v == 0xff {
			continue
		}
		if v == 0xfe {
			break
		}
		quartet[n] = v
		n++
		if n == 4 {
			out = append(out, quartet[0]<<2|quartet[1]>>4)
			out = append(out, quartet[1]<<4|quartet[2]>>2)
			out = append(out, quartet[2]<<6|quartet[3])
			n = 0
		}
	}
	switch n {
	case 2:
		out = append(out, quartet[0]<<2|quartet[1]>>4)
	case 3:
		out = append(out, quartet[0]<<2|quartet[1]>>4)
		out = append(out, quartet[1]<<4|quartet[2]>>2)
	}
	return out
}

// base64Encode is the inverse of base64Decode, used by tests to exercise the
// round-trip property without pulling in encoding/base64 for
// the decode path itself.
func base64Encode(data []byte) []byte {
	out := make([]byte, 0, (len(data)+2)/3*4)
	for i := 0; i < len(data); i += 3 {
		var b0, b1, b2 byte
		b0 = data[i]
		n := 1
		if i+1 < len(data) {
			b1 = data[i+1]
			n = 2
		}
		if i+2 < len(data) {
			b2 = data[i+2]
			n = 3
		}
		out = append(out, base64Alphabet[b0>>2])
		out = append(out, base64Alphabet[(b0&0x03)<<4|b1>>4])
		if n > 1 {
			out = append(out, base64Alphabet[(b1&0x0f)<<2|b2>>6])
		} else {
			out = append(out, '=')
		}
		if n > 2 {
			out = append(out, base64Alphabet[b2&0x3f])
		} else {
			out = append(out, '=')
		}
	}
	return out
}
