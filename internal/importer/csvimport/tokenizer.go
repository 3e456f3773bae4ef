package csvimport

import "strings"

const byteOrderMark = "\ufeff"

type tokenizerState int

const (
	stateUnquoted tokenizerState = iota
	stateQuoted
	stateQuotedSawQuote
)

// Tokenize splits raw CSV text into rows of fields.
//
// It accepts RFC 4180 style quoting (including "" escapes and quoted
// delimiters or newlines), tolerates CRLF line endings, a leading UTF-8 BOM
// and a final row without a newline. Blank rows are dropped. Malformed
// quoting never fails: stray quotes are kept as literal characters.
func Tokenize(input string, delimiter rune) [][]string {
	input = strings.TrimPrefix(input, byteOrderMark)

	var (
		rows       [][]string
		row        []string
		field      strings.Builder
		state      = stateUnquoted
		fieldStart = true
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
		fieldStart = true
	}
	endRow := func() {
		endField()
		if !(len(row) == 1 && row[0] == "") {
			rows = append(rows, row)
		}
		row = nil
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch state {
		case stateUnquoted:
			switch {
			case c == '"' && fieldStart:
				state = stateQuoted
				fieldStart = false
			case c == delimiter:
				endField()
			case c == '\r':
				if i+1 < len(runes) && runes[i+1] == '\n' {
					i++
				}
				endRow()
			case c == '\n':
				endRow()
			default:
				field.WriteRune(c)
				fieldStart = false
			}

		case stateQuoted:
			if c == '"' {
				state = stateQuotedSawQuote
			} else {
				field.WriteRune(c)
			}

		case stateQuotedSawQuote:
			switch {
			case c == '"':
				field.WriteRune('"')
				state = stateQuoted
			case c == delimiter:
				endField()
				state = stateUnquoted
			case c == '\r':
				if i+1 < len(runes) && runes[i+1] == '\n' {
					i++
				}
				endRow()
				state = stateUnquoted
			case c == '\n':
				endRow()
				state = stateUnquoted
			default:
				// Text after a closing quote: keep it and continue unquoted.
				field.WriteRune(c)
				state = stateUnquoted
			}
		}
	}

	if field.Len() > 0 || len(row) > 0 || state != stateUnquoted || !fieldStart {
		endRow()
	}

	return rows
}

// DetectDelimiter picks tab or comma by counting unquoted occurrences in the first line.
func DetectDelimiter(input string) rune {
	input = strings.TrimPrefix(input, byteOrderMark)
	first := input
	if i := strings.IndexAny(input, "\r\n"); i >= 0 {
		first = input[:i]
	}

	var commas, tabs int
	inQuotes := false
	for _, c := range first {
		switch c {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				commas++
			}
		case '\t':
			if !inQuotes {
				tabs++
			}
		}
	}

	if tabs > commas {
		return '\t'
	}
	return ','
}
