// Command cbordump decodes a CBOR document into a line-oriented text
// rendering of its token stream, or, with --encode, reads a line grammar of
// the same shape (see encodeFromText for what it accepts) and encodes it to
// CBOR. It exists to exercise Decoder,
// Encoder, Sizer and Config end to end from the command line.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/streamcbor/cbor"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cbordump: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		encode    bool
		sized     bool
		intern    bool
		strictDup bool
		inputPath string
	)

	flagSet := pflag.NewFlagSet("cbordump", pflag.ContinueOnError)
	flagSet.BoolVar(&encode, "encode", false, "read the text token rendering on stdin and emit CBOR on stdout")
	flagSet.BoolVar(&sized, "sized", false, "when encoding, wrap the Encoder in a Sizer for definite-length containers")
	flagSet.BoolVar(&intern, "intern", false, "intern decoded field names through a shared SymbolTable")
	flagSet.BoolVar(&strictDup, "strict-duplicates", false, "reject duplicate field names within one object")
	flagSet.StringVar(&inputPath, "file", "", "input file (default: stdin)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	in := io.Reader(os.Stdin)
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	cfg := cbor.Config{InternFieldNames: intern, StrictDuplicateDetection: strictDup}

	if encode {
		return encodeFromText(in, os.Stdout, cfg, sized)
	}
	return dumpTokens(in, os.Stdout, cfg, intern)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `cbordump — decode CBOR to a line-oriented token dump, or re-encode one.

Usage:
  cbordump [flags] < input.cbor
  cbordump --encode [flags] < tokens.txt > output.cbor

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// dumpTokens walks every token in r and writes one line per token to w,
// indented by nesting depth.
func dumpTokens(r io.Reader, w io.Writer, cfg cbor.Config, intern bool) error {
	var symtab *cbor.SymbolTable
	if intern {
		symtab = cbor.NewSymbolTable(0)
	}
	dec := cbor.NewDecoder(r, symtab, cfg)
	defer dec.Close()

	depth := 0
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for {
		tok, err := dec.NextToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if tok == cbor.EndArray || tok == cbor.EndObject {
			depth--
		}
		indent := strings.Repeat("  ", depth)

		var name string
		if n := dec.CurrentName(); n != "" && tok != cbor.FieldName {
			name = n + ": "
		}

		if err := writeTokenLine(bw, dec, tok, indent, name); err != nil {
			return err
		}

		if tok == cbor.StartArray || tok == cbor.StartObject {
			depth++
		}
	}
}

func writeTokenLine(w io.Writer, dec *cbor.Decoder, tok cbor.Token, indent, name string) error {
	switch tok {
	case cbor.StartArray:
		_, err := fmt.Fprintf(w, "%s%s[\n", indent, name)
		return err
	case cbor.EndArray:
		_, err := fmt.Fprintf(w, "%s]\n", indent)
		return err
	case cbor.StartObject:
		_, err := fmt.Fprintf(w, "%s%s{\n", indent, name)
		return err
	case cbor.EndObject:
		_, err := fmt.Fprintf(w, "%s}\n", indent)
		return err
	case cbor.FieldName:
		_, err := fmt.Fprintf(w, "%s%q:\n", indent, dec.CurrentName())
		return err
	case cbor.String:
		text, err := dec.GetText()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s%q\n", indent, name, text)
		return err
	case cbor.EmbeddedObject, cbor.Binary:
		data, err := dec.GetBinary()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%sh'%s'\n", indent, hex.EncodeToString(data))
		return err
	case cbor.Boolean:
		v, err := dec.GetBoolean()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s%v\n", indent, name, v)
		return err
	case cbor.Null:
		_, err := fmt.Fprintf(w, "%s%snull\n", indent, name)
		return err
	case cbor.Integer, cbor.Float:
		return writeNumberLine(w, dec, indent, name)
	default:
		_, err := fmt.Fprintf(w, "%s<%s>\n", indent, tok)
		return err
	}
}

func writeNumberLine(w io.Writer, dec *cbor.Decoder, indent, name string) error {
	switch dec.GetNumberType() {
	case cbor.NumberInt32:
		v, err := dec.GetInt32()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s%d\n", indent, name, v)
		return err
	case cbor.NumberInt64:
		v, err := dec.GetInt64()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s%d\n", indent, name, v)
		return err
	case cbor.NumberBigInt:
		v, err := dec.GetBigInt()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s%s\n", indent, name, v.String())
		return err
	case cbor.NumberFloat32:
		v, err := dec.GetFloat32()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s%gf32\n", indent, name, v)
		return err
	case cbor.NumberFloat64:
		v, err := dec.GetFloat64()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s%g\n", indent, name, v)
		return err
	case cbor.NumberBigDecimal:
		v, err := dec.GetBigDecimal()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s%sD\n", indent, name, v.String())
		return err
	default:
		_, err := fmt.Fprintf(w, "%s%s?\n", indent, name)
		return err
	}
}

// encodeFromText is the --encode path's minimal companion to dumpTokens. It
// reads one token per line: "[", "]", "{" and "}" lines (text before an
// opening bracket is ignored), quoted field names ending in ':', quoted
// strings, true, false, null, and plain decimal numbers. It does not accept
// the "name: " prefix dumpTokens puts before scalar values inside objects,
// h'..' binary lines, or the f32 and D number suffixes, so a dump of an
// object with scalar members, binary values, float32 or decimal values does
// not re-encode as is.
func encodeFromText(r io.Reader, w io.Writer, cfg cbor.Config, sized bool) error {
	scanner := bufio.NewScanner(bufio.NewReader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	enc := cbor.NewEncoder(w, cfg)
	if !sized {
		if err := encodeLines(scanner, enc); err != nil {
			return err
		}
		return enc.Flush()
	}
	sizer := cbor.NewSizer(enc)
	if err := encodeLines(scanner, sizer); err != nil {
		return err
	}
	return enc.Flush()
}

// tokenWriter is the subset of Encoder/Sizer's surface the text grammar
// needs, letting encodeLines stay agnostic to whether sizing is active.
type tokenWriter interface {
	WriteStartArray() error
	WriteEndArray() error
	WriteStartObject() error
	WriteEndObject() error
	WriteFieldName(string) error
	WriteString(string) error
	WriteBoolean(bool) error
	WriteNull() error
	WriteInt64(int64) error
	WriteFloat64(float64) error
	WriteBigInt(*big.Int) error
}

func encodeLines(scanner *bufio.Scanner, w tokenWriter) error {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		trimmed := strings.TrimRight(line, " ")
		switch {
		case strings.HasSuffix(trimmed, "["):
			if err := w.WriteStartArray(); err != nil {
				return err
			}
		case trimmed == "]":
			if err := w.WriteEndArray(); err != nil {
				return err
			}
		case strings.HasSuffix(trimmed, "{"):
			if err := w.WriteStartObject(); err != nil {
				return err
			}
		case trimmed == "}":
			if err := w.WriteEndObject(); err != nil {
				return err
			}
		case strings.HasSuffix(trimmed, ":") && strings.HasPrefix(trimmed, `"`):
			name, err := strconv.Unquote(trimmed[:len(trimmed)-1])
			if err != nil {
				return err
			}
			if err := w.WriteFieldName(name); err != nil {
				return err
			}
		case trimmed == "true" || trimmed == "false":
			if err := w.WriteBoolean(trimmed == "true"); err != nil {
				return err
			}
		case trimmed == "null":
			if err := w.WriteNull(); err != nil {
				return err
			}
		case strings.HasPrefix(trimmed, `"`):
			text, err := strconv.Unquote(trimmed)
			if err != nil {
				return err
			}
			if err := w.WriteString(text); err != nil {
				return err
			}
		default:
			if err := encodeNumberLine(trimmed, w); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func encodeNumberLine(trimmed string, w tokenWriter) error {
	if strings.Contains(trimmed, ".") || strings.Contains(trimmed, "e") || strings.Contains(trimmed, "E") {
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return fmt.Errorf("unrecognized token line %q: %w", trimmed, err)
		}
		return w.WriteFloat64(v)
	}
	if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return w.WriteInt64(v)
	}
	big, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return fmt.Errorf("unrecognized token line %q", trimmed)
	}
	return w.WriteBigInt(big)
}
