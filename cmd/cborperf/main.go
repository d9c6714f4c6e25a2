// Command cborperf is a throughput harness modeled directly on the teacher
// jibby's testdata/jibbyperf: it loads one input file and times repeated
// passes through the codec, reporting MB/s per scenario.
package main

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"time"

	"github.com/streamcbor/cbor"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: cborperf <cbor file>")
	}
	data, err := ioutil.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	benchDecode(data)
	benchRoundTrip(data, false)
	benchRoundTrip(data, true)
}

// benchDecode repeatedly walks the full token stream of data, discarding
// every materialized value, to measure pure decode throughput.
func benchDecode(data []byte) {
	start := time.Now()
	for {
		r := bytes.NewReader(data)
		dec := cbor.NewDecoder(r, nil, cbor.Config{})
		if err := drain(dec); err != nil {
			log.Fatal(err)
		}
		if time.Since(start) > time.Second {
			break
		}
	}
	reportResult("decode", len(data), time.Since(start))
}

// drain walks every token in dec once, materializing scalars the way a real
// consumer would, until EOF at the root.
func drain(dec *cbor.Decoder) error {
	for {
		tok, err := dec.NextToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch tok {
		case cbor.String:
			if _, err := dec.GetText(); err != nil {
				return err
			}
		case cbor.EmbeddedObject, cbor.Binary:
			if _, err := dec.GetBinary(); err != nil {
				return err
			}
		case cbor.Integer:
			if dec.GetNumberType() == cbor.NumberInt64 {
				if _, err := dec.GetInt64(); err != nil {
					return err
				}
			}
		case cbor.Float:
			if dec.GetNumberType() == cbor.NumberFloat64 {
				if _, err := dec.GetFloat64(); err != nil {
					return err
				}
			}
		}
	}
}

// benchRoundTrip decodes data and re-encodes it to a throwaway buffer,
// optionally through a Sizer, measuring decode+encode throughput together.
func benchRoundTrip(data []byte, sized bool) {
	label := "decode+encode"
	if sized {
		label = "decode+encode(sized)"
	}

	start := time.Now()
	for {
		if err := roundTripOnce(data, sized); err != nil {
			log.Fatal(err)
		}
		if time.Since(start) > time.Second {
			break
		}
	}
	reportResult(label, len(data), time.Since(start))
}

func roundTripOnce(data []byte, sized bool) error {
	dec := cbor.NewDecoder(bytes.NewReader(data), nil, cbor.Config{})
	var out bytes.Buffer
	enc := cbor.NewEncoder(&out, cbor.Config{})

	if !sized {
		return copyTokens(dec, enc)
	}
	sizer := cbor.NewSizer(enc)
	if err := copyTokens(dec, sizer); err != nil {
		return err
	}
	return enc.Flush()
}

// tokenSink is the subset of Encoder/Sizer's surface copyTokens needs, so it
// stays agnostic to whether sizing is active.
type tokenSink interface {
	WriteStartArray() error
	WriteEndArray() error
	WriteStartObject() error
	WriteEndObject() error
	WriteFieldName(string) error
	WriteString(string) error
	WriteBinary([]byte) error
	WriteBoolean(bool) error
	WriteNull() error
	WriteInt64(int64) error
	WriteFloat64(float64) error
}

// copyTokens reads every token from dec and replays it against w, which is
// either an *Encoder directly or a *Sizer wrapping one.
func copyTokens(dec *cbor.Decoder, w tokenSink) error {
	for {
		tok, err := dec.NextToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch tok {
		case cbor.StartArray:
			if err := w.WriteStartArray(); err != nil {
				return err
			}
		case cbor.EndArray:
			if err := w.WriteEndArray(); err != nil {
				return err
			}
		case cbor.StartObject:
			if err := w.WriteStartObject(); err != nil {
				return err
			}
		case cbor.EndObject:
			if err := w.WriteEndObject(); err != nil {
				return err
			}
		case cbor.FieldName:
			if err := w.WriteFieldName(dec.CurrentName()); err != nil {
				return err
			}
		case cbor.String:
			text, err := dec.GetText()
			if err != nil {
				return err
			}
			if err := w.WriteString(text); err != nil {
				return err
			}
		case cbor.EmbeddedObject, cbor.Binary:
			data, err := dec.GetBinary()
			if err != nil {
				return err
			}
			if err := w.WriteBinary(data); err != nil {
				return err
			}
		case cbor.Boolean:
			v, err := dec.GetBoolean()
			if err != nil {
				return err
			}
			if err := w.WriteBoolean(v); err != nil {
				return err
			}
		case cbor.Null:
			if err := w.WriteNull(); err != nil {
				return err
			}
		case cbor.Integer:
			v, err := dec.GetInt64()
			if err != nil {
				return err
			}
			if err := w.WriteInt64(v); err != nil {
				return err
			}
		case cbor.Float:
			v, err := dec.GetFloat64()
			if err != nil {
				return err
			}
			if err := w.WriteFloat64(v); err != nil {
				return err
			}
		}
	}
}

func reportResult(label string, size int, elapsed time.Duration) {
	throughput := float64(size) / float64(elapsed.Microseconds()+1)
	fmt.Printf("%22s %.2f MB/s\n", label, throughput)
}
