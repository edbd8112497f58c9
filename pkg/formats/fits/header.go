package fits

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ajitpratap0/csvfits/pkg/errors"
)

const (
	// BlockSize is the FITS logical record length. Headers and data areas
	// are padded to a multiple of it.
	BlockSize = 2880
	// CardSize is the length of one header card image.
	CardSize = 80

	keywordSize = 8
	valueWidth  = 20
)

// Card is one 80-character header keyword record
type Card struct {
	Keyword string
	// Value is a bool, int64, float64, string or nil for commentary cards.
	Value   interface{}
	Comment string
}

// Format renders the card as exactly CardSize bytes using fixed-format
// values: logical and integer values right-justified to column 30, strings
// quoted from column 11 with at least eight characters between the quotes.
func (c Card) Format() string {
	var b strings.Builder
	b.Grow(CardSize)
	fmt.Fprintf(&b, "%-*s", keywordSize, c.Keyword)

	if c.Value != nil {
		b.WriteString("= ")
		b.WriteString(formatValue(c.Value))
	}
	if c.Comment != "" {
		if c.Value != nil {
			b.WriteString(" / ")
		}
		b.WriteString(c.Comment)
	}

	s := b.String()
	if len(s) > CardSize {
		return s[:CardSize]
	}
	return s + strings.Repeat(" ", CardSize-len(s))
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case bool:
		if x {
			return fmt.Sprintf("%*s", valueWidth, "T")
		}
		return fmt.Sprintf("%*s", valueWidth, "F")
	case int:
		return fmt.Sprintf("%*d", valueWidth, x)
	case int64:
		return fmt.Sprintf("%*d", valueWidth, x)
	case float64:
		s := strconv.FormatFloat(x, 'G', -1, 64)
		if !strings.ContainsAny(s, ".E") {
			s += "."
		}
		return fmt.Sprintf("%*s", valueWidth, s)
	case string:
		quoted := "'" + fmt.Sprintf("%-8s", strings.ReplaceAll(x, "'", "''")) + "'"
		return fmt.Sprintf("%-*s", valueWidth, quoted)
	default:
		return fmt.Sprintf("%*v", valueWidth, x)
	}
}

// Header is an ordered list of cards, terminated by END when encoded
type Header struct {
	Cards []Card
}

// Add appends a card
func (h *Header) Add(keyword string, value interface{}, comment string) {
	h.Cards = append(h.Cards, Card{Keyword: keyword, Value: value, Comment: comment})
}

// Get returns the first card with the given keyword
func (h *Header) Get(keyword string) (Card, bool) {
	for _, c := range h.Cards {
		if c.Keyword == keyword {
			return c, true
		}
	}
	return Card{}, false
}

// Int returns the integer value of a keyword
func (h *Header) Int(keyword string) (int64, error) {
	c, ok := h.Get(keyword)
	if !ok {
		return 0, errors.New(errors.ErrorTypeFormat, "missing header keyword").WithDetail("keyword", keyword)
	}
	v, ok := c.Value.(int64)
	if !ok {
		return 0, errors.New(errors.ErrorTypeFormat, "header keyword is not an integer").
			WithDetail("keyword", keyword).
			WithDetail("value", c.Value)
	}
	return v, nil
}

// String returns the string value of a keyword
func (h *Header) String(keyword string) (string, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return "", false
	}
	s, ok := c.Value.(string)
	return s, ok
}

// Bool returns the logical value of a keyword
func (h *Header) Bool(keyword string) (bool, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return false, false
	}
	v, ok := c.Value.(bool)
	return v, ok
}

// Bytes encodes the header followed by END, space-padded to whole blocks
func (h *Header) Bytes() []byte {
	var buf bytes.Buffer
	for _, c := range h.Cards {
		buf.WriteString(c.Format())
	}
	buf.WriteString(Card{Keyword: "END"}.Format())
	if pad := padding(buf.Len()); pad > 0 {
		buf.Write(bytes.Repeat([]byte{' '}, pad))
	}
	return buf.Bytes()
}

// padding returns the number of fill bytes needed to complete the last block
func padding(n int) int {
	if r := n % BlockSize; r != 0 {
		return BlockSize - r
	}
	return 0
}

// ParseCard decodes one 80-byte card image
func ParseCard(image string) (Card, error) {
	if len(image) != CardSize {
		return Card{}, errors.Newf(errors.ErrorTypeFormat, "card image is %d bytes, want %d", len(image), CardSize)
	}
	card := Card{Keyword: strings.TrimRight(image[:keywordSize], " ")}
	if image[keywordSize:keywordSize+2] != "= " {
		card.Comment = strings.TrimSpace(image[keywordSize:])
		return card, nil
	}

	rest := strings.TrimLeft(image[keywordSize+2:], " ")
	if strings.HasPrefix(rest, "'") {
		s, tail, err := parseString(rest)
		if err != nil {
			return Card{}, err.WithDetail("keyword", card.Keyword)
		}
		card.Value = s
		card.Comment = parseComment(tail)
		return card, nil
	}

	text := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		text = rest[:i]
		card.Comment = parseComment(rest[i:])
	}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		card.Value = nil
	case text == "T":
		card.Value = true
	case text == "F":
		card.Value = false
	default:
		if v, err := strconv.ParseInt(text, 10, 64); err == nil {
			card.Value = v
		} else if v, err := strconv.ParseFloat(strings.Replace(text, "D", "E", 1), 64); err == nil {
			card.Value = v
		} else {
			return Card{}, errors.New(errors.ErrorTypeFormat, "unparseable header value").
				WithDetail("keyword", card.Keyword).
				WithDetail("value", text)
		}
	}
	return card, nil
}

// parseString reads a quoted string value. Doubled quotes are literal
// quotes; trailing spaces inside the quotes are not significant.
func parseString(s string) (string, string, *errors.Error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return strings.TrimRight(b.String(), " "), s[i+1:], nil
	}
	return "", "", errors.New(errors.ErrorTypeFormat, "unterminated string value")
}

func parseComment(tail string) string {
	tail = strings.TrimSpace(tail)
	return strings.TrimSpace(strings.TrimPrefix(tail, "/"))
}
