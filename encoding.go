package structdef

import (
	"encoding/ascii85"
	"encoding/base64"
	"fmt"
	"strings"
)

// TextEncoding turns binary frames into the string Serialize returns.
type TextEncoding int

const (
	Base64 TextEncoding = iota
	Base85
	// Raw keeps frame bytes as they are. Frames are self-delimiting, so
	// multiple frames are simply concatenated.
	Raw
)

var encodingNames = map[string]TextEncoding{
	"base64":  Base64,
	"base85":  Base85,
	"ascii85": Base85,
	"raw":     Raw,
}

func ParseTextEncoding(s string) (TextEncoding, error) {
	e, ok := encodingNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
	return e, nil
}

func (e TextEncoding) String() string {
	switch e {
	case Base64:
		return "base64"
	case Base85:
		return "base85"
	case Raw:
		return "raw"
	}
	return fmt.Sprintf("TextEncoding(%d)", int(e))
}

// separator joins frames in multi-frame content.
func (e TextEncoding) separator() string {
	if e == Raw {
		return ""
	}
	return "\n"
}

func (e TextEncoding) encode(b []byte) string {
	switch e {
	case Base85:
		dst := make([]byte, ascii85.MaxEncodedLen(len(b)))
		n := ascii85.Encode(dst, b)
		return string(dst[:n])
	case Raw:
		return string(b)
	default:
		return base64.StdEncoding.EncodeToString(b)
	}
}

// chunks splits content into independently encoded pieces.
func (e TextEncoding) chunks(content string) []string {
	if e == Raw {
		if content == "" {
			return nil
		}
		return []string{content}
	}
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (e TextEncoding) decode(chunk string) ([]byte, error) {
	switch e {
	case Base85:
		dst := make([]byte, 4*len(chunk))
		n, _, err := ascii85.Decode(dst, []byte(chunk), true)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return dst[:n], nil
	case Raw:
		return []byte(chunk), nil
	case Base64:
		b, err := base64.StdEncoding.DecodeString(chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(e))
}
