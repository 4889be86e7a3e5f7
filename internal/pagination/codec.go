// Package pagination encodes search session state into the small opaque
// payloads carried by interactive buttons, and computes the page window.
package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxPayloadBytes is the transport's limit for a button payload.
const MaxPayloadBytes = 64

// MaxPage bounds page numbers so that (page-1)*pageSize always fits in an int
// store offset.
const MaxPage = 1 << 20

const (
	tagPage   = "page"
	tagIgnore = "ignore"
	tagSend   = "send"
	sep       = "|"
)

var (
	// ErrMalformed is wrapped by every Decode failure.
	ErrMalformed = errors.New("invalid page data")
	// ErrPayloadTooLarge is returned by Encode when the result exceeds MaxPayloadBytes.
	ErrPayloadTooLarge = errors.New("payload exceeds size budget")
)

// Payload is one decoded button payload. The set of implementations is closed:
// PageRequest, Ignore, Send and LegacyToken.
type Payload interface {
	payload()
}

// PageRequest asks for a page of the same keyword search.
type PageRequest struct {
	Keyword string
	Page    int
}

// Ignore marks the button of the page currently shown.
type Ignore struct {
	Keyword string
	Page    int
}

// Send asks for direct delivery of one media item.
type Send struct {
	FileID string
}

// LegacyToken is the bare "<fileId>|<page>" form, asking for an exchange
// token link for one media item.
type LegacyToken struct {
	FileID string
	Page   int
}

func (PageRequest) payload() {}
func (Ignore) payload()      {}
func (Send) payload()        {}
func (LegacyToken) payload() {}

// Encode renders p in its pipe-delimited wire form.
func Encode(p Payload) (string, error) {
	var out string
	switch v := p.(type) {
	case PageRequest:
		if err := checkKeywordPage(v.Keyword, v.Page); err != nil {
			return "", err
		}
		out = tagPage + sep + v.Keyword + sep + strconv.Itoa(v.Page)
	case Ignore:
		if err := checkKeywordPage(v.Keyword, v.Page); err != nil {
			return "", err
		}
		out = tagIgnore + sep + v.Keyword + sep + strconv.Itoa(v.Page)
	case Send:
		if err := checkFileID(v.FileID); err != nil {
			return "", err
		}
		out = tagSend + sep + v.FileID
	case LegacyToken:
		if err := checkFileID(v.FileID); err != nil {
			return "", err
		}
		if reserved(v.FileID) {
			return "", fmt.Errorf("file id %q collides with a payload tag", v.FileID)
		}
		if !ValidPage(v.Page) {
			return "", fmt.Errorf("page %d out of range", v.Page)
		}
		out = v.FileID + sep + strconv.Itoa(v.Page)
	default:
		return "", fmt.Errorf("unknown payload type %T", p)
	}

	if len(out) > MaxPayloadBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(out))
	}
	return out, nil
}

// Decode parses a wire payload. It never panics; every failure wraps
// ErrMalformed and describes what was wrong.
func Decode(data string) (Payload, error) {
	parts := strings.Split(data, sep)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: expected at least 2 fields, got %d", ErrMalformed, len(parts))
	}

	switch parts[0] {
	case tagPage, tagIgnore:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: %s needs keyword and page", ErrMalformed, parts[0])
		}
		// Keywords may themselves contain the separator; the page is always last.
		kw := strings.Join(parts[1:len(parts)-1], sep)
		if kw == "" {
			return nil, fmt.Errorf("%w: empty keyword", ErrMalformed)
		}
		page, err := parsePage(parts[len(parts)-1])
		if err != nil {
			return nil, err
		}
		if parts[0] == tagIgnore {
			return Ignore{Keyword: kw, Page: page}, nil
		}
		return PageRequest{Keyword: kw, Page: page}, nil

	case tagSend:
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("%w: send needs exactly one file id", ErrMalformed)
		}
		return Send{FileID: parts[1]}, nil

	default:
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("%w: unrecognized payload %q", ErrMalformed, data)
		}
		page, err := parsePage(parts[1])
		if err != nil {
			return nil, err
		}
		return LegacyToken{FileID: parts[0], Page: page}, nil
	}
}

// FitKeyword shortens kw until every page/ignore payload up to maxPage fits
// the size budget. Whole trailing tokens are dropped first; a single token
// that is still too long is cut at a rune boundary.
func FitKeyword(kw string, maxPage int) string {
	if maxPage < 1 {
		maxPage = 1
	}
	budget := MaxPayloadBytes - len(tagIgnore+sep+sep) - len(strconv.Itoa(maxPage))
	if budget <= 0 {
		return ""
	}
	if len(kw) <= budget {
		return kw
	}

	tokens := strings.Fields(kw)
	for len(tokens) > 1 && len(strings.Join(tokens, " ")) > budget {
		tokens = tokens[:len(tokens)-1]
	}
	kw = strings.Join(tokens, " ")
	if len(kw) <= budget {
		return kw
	}

	cut := budget
	for cut > 0 && !utf8.RuneStart(kw[cut]) {
		cut--
	}
	return kw[:cut]
}

func parsePage(s string) (int, error) {
	page, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: page %q is not a number", ErrMalformed, s)
	}
	if !ValidPage(page) {
		return 0, fmt.Errorf("%w: page %d out of range", ErrMalformed, page)
	}
	return page, nil
}

// ValidPage reports whether page is within [1, MaxPage].
func ValidPage(page int) bool {
	return page >= 1 && page <= MaxPage
}

func reserved(id string) bool {
	return id == tagPage || id == tagIgnore || id == tagSend
}

func checkKeywordPage(kw string, page int) error {
	if kw == "" {
		return errors.New("empty keyword")
	}
	if !ValidPage(page) {
		return fmt.Errorf("page %d out of range", page)
	}
	return nil
}

func checkFileID(id string) error {
	if id == "" {
		return errors.New("empty file id")
	}
	if strings.Contains(id, sep) {
		return fmt.Errorf("file id %q contains separator", id)
	}
	return nil
}
