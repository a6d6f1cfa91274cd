package quarry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type codecLine struct {
	SKU    string          `doc:"sku"`
	Qty    uint16          `doc:"qty"`
	Amount decimal.Decimal `doc:"amount"`
}

type codecOrder struct {
	ID       *int64         `doc:"id"`
	Number   string         `doc:"number"`
	Ref      uuid.UUID      `doc:"ref"`
	Placed   time.Time      `doc:"placed"`
	Due      Date           `doc:"due"`
	Paid     bool           `doc:"paid"`
	Weight   float32        `doc:"weight"`
	Small    int8           `doc:"small"`
	Lines    []codecLine    `doc:"lines"`
	Tags     []string       `doc:"tags"`
	Note     *string        `doc:"note"`
	Ship     *codecLine     `doc:"ship"`
	Payload  []byte         `doc:"payload"`
	Extra    map[string]any `doc:"extra"`
	Anything any            `doc:"anything"`
	Internal *string        `doc:"internal,skip"`
}

func sampleOrder() codecOrder {
	id := int64(42)
	note := "fragile"
	return codecOrder{
		ID:      &id,
		Number:  "INV-7",
		Ref:     uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Placed:  time.Date(2024, 5, 6, 7, 8, 9, 500_000_000, time.UTC),
		Due:     Date{Year: 2024, Month: time.June, Day: 1},
		Paid:    true,
		Weight:  2.5,
		Small:   -3,
		Lines:   []codecLine{{SKU: "a", Qty: 2, Amount: decimal.RequireFromString("19.99")}},
		Tags:    []string{"x", "y"},
		Note:    &note,
		Payload: []byte{0, 1, 2, 250},
		Extra:   map[string]any{"k": "v"},
	}
}

func TestEncode(t *testing.T) {
	doc, err := Encode(sampleOrder())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := map[string]any{
		"id":     int64(42),
		"number": "INV-7",
		"ref":    "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"placed": "2024-05-06T07:08:09.5",
		"due":    "2024-06-01",
		"paid":   true,
		"weight": float64(2.5),
		"small":  int64(-3),
		"lines": []any{
			map[string]any{"sku": "a", "qty": uint64(2), "amount": "19.99"},
		},
		"tags":     []any{"x", "y"},
		"note":     "fragile",
		"ship":     nil,
		"payload":  "AAEC+g==",
		"extra":    map[string]any{"k": "v"},
		"anything": nil,
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := doc["internal"]; ok {
		t.Error("skip field should not be encoded")
	}
}

func TestEncodeEdges(t *testing.T) {
	var nilOrder *codecOrder
	doc, err := Encode(nilOrder)
	if err != nil || doc != nil {
		t.Errorf("Encode(nil pointer) = %v, %v; want nil, nil", doc, err)
	}

	doc, err = Encode(&codecOrder{})
	if err != nil {
		t.Fatalf("Encode(zero) error: %v", err)
	}
	if seq, ok := doc["tags"].([]any); !ok || len(seq) != 0 {
		t.Errorf("nil slice encoded as %#v, want empty sequence", doc["tags"])
	}
	if doc["id"] != nil {
		t.Errorf("absent optional encoded as %#v, want nil", doc["id"])
	}

	if _, err := Encode(42); !errors.Is(err, ErrNotRecord) {
		t.Errorf("Encode(42) error = %v, want ErrNotRecord", err)
	}
}

func TestRoundTrip(t *testing.T) {
	orders := []codecOrder{sampleOrder(), {}}

	for i, in := range orders {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			doc, err := Encode(&in)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			out, err := Decode[codecOrder](doc)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if diff := cmp.Diff(in, *out, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeNilDocument(t *testing.T) {
	out, err := Decode[codecOrder](nil)
	if out != nil || err != nil {
		t.Errorf("Decode(nil) = %v, %v; want nil, nil", out, err)
	}
}

type codecNumbers struct {
	I   int             `doc:"i"`
	I8  int8            `doc:"i8"`
	U   uint            `doc:"u"`
	F   float64         `doc:"f"`
	S   string          `doc:"s"`
	B   bool            `doc:"b"`
	D   decimal.Decimal `doc:"d"`
	T   time.Time       `doc:"t"`
	Day Date            `doc:"day"`
	Raw []byte          `doc:"raw"`
}

func TestDecodeConversions(t *testing.T) {
	doc := map[string]any{
		"i":   json.Number("9007199254740993"),
		"i8":  float64(-128),
		"u":   "18",
		"f":   int64(3),
		"s":   12.5,
		"b":   "true",
		"d":   0.1,
		"t":   "2024-01-02 03:04:05",
		"day": time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
		"raw": []byte("hi"),
	}
	got, err := Decode[codecNumbers](doc)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	want := codecNumbers{
		I:   9007199254740993,
		I8:  -128,
		U:   18,
		F:   3,
		S:   "12.5",
		B:   true,
		D:   decimal.RequireFromString("0.1"),
		T:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Day: Date{Year: 2024, Month: time.January, Day: 2},
		Raw: []byte("hi"),
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := func() map[string]any {
		doc, _ := Encode(sampleOrder())
		return doc
	}

	tests := []struct {
		name   string
		mutate func(map[string]any) any
		kind   DecodeKind
		path   string
	}{
		{"missing required", func(d map[string]any) any { delete(d, "number"); return d }, MissingRequiredField, "number"},
		{"null required", func(d map[string]any) any { d["paid"] = nil; return d }, MissingRequiredField, "paid"},
		{"overflow", func(d map[string]any) any { d["small"] = 300; return d }, TypeMismatch, "small"},
		{"fraction", func(d map[string]any) any { d["small"] = 1.5; return d }, TypeMismatch, "small"},
		{"bad timestamp", func(d map[string]any) any { d["placed"] = "yesterday"; return d }, TypeMismatch, "placed"},
		{"bad uuid", func(d map[string]any) any { d["ref"] = "nope"; return d }, TypeMismatch, "ref"},
		{"bad base64", func(d map[string]any) any { d["payload"] = "%%"; return d }, TypeMismatch, "payload"},
		{"sequence expected", func(d map[string]any) any { d["tags"] = "x"; return d }, TypeMismatch, "tags"},
		{"mapping expected", func(d map[string]any) any { d["ship"] = []any{}; return d }, TypeMismatch, "ship"},
		{"nested path", func(d map[string]any) any {
			d["lines"] = []any{
				map[string]any{"sku": "a", "qty": 1, "amount": "1"},
				map[string]any{"sku": "b", "qty": -1, "amount": "1"},
			}
			return d
		}, TypeMismatch, "lines[1].qty"},
		{"nested missing", func(d map[string]any) any {
			d["ship"] = map[string]any{"sku": "a", "qty": 1}
			return d
		}, MissingRequiredField, "ship.amount"},
		{"root not mapping", func(map[string]any) any { return "order" }, TypeMismatch, "codecOrder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[codecOrder](tt.mutate(valid()))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
			if de.Kind != tt.kind || de.Path != tt.path {
				t.Errorf("DecodeError = {%s %s}, want {%s %s}", de.Kind, de.Path, tt.kind, tt.path)
			}
		})
	}
}

func TestDecodeAcceptsTypedContainers(t *testing.T) {
	doc := map[string]any{
		"sku":    "a",
		"qty":    1,
		"amount": "2",
	}
	wrapper := map[string]any{
		"from": map[string]string{"sku": "b", "qty": "3", "amount": "4.5"},
		"to":   doc,
	}

	type route struct {
		From codecLine `doc:"from"`
		To   codecLine `doc:"to"`
	}
	got, err := Decode[route](wrapper)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.From.Qty != 3 || !got.From.Amount.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("From = %+v", got.From)
	}

	tags, err := Decode[struct {
		Tags []string `doc:"tags"`
	}](map[string]any{"tags": []string{"p", "q"}})
	if err != nil || len(tags.Tags) != 2 {
		t.Errorf("Decode(typed slice) = %+v, %v", tags, err)
	}
}

func TestDecodeInto(t *testing.T) {
	var line codecLine
	if err := DecodeInto(map[string]any{"sku": "s", "qty": 9, "amount": "1"}, &line); err != nil {
		t.Fatalf("DecodeInto() error: %v", err)
	}
	if line.SKU != "s" || line.Qty != 9 {
		t.Errorf("DecodeInto() = %+v", line)
	}

	if err := DecodeInto(map[string]any{}, line); !errors.Is(err, ErrNotRecord) {
		t.Errorf("DecodeInto(non-pointer) error = %v, want ErrNotRecord", err)
	}
	var nilLine *codecLine
	if err := DecodeInto(map[string]any{}, nilLine); !errors.Is(err, ErrNotRecord) {
		t.Errorf("DecodeInto(nil) error = %v, want ErrNotRecord", err)
	}
}

type parsedEvent struct {
	At    time.Time `doc:"at"`
	Level int       `doc:"level"`
	Code  *string   `doc:"code"`
}

func TestParsers(t *testing.T) {
	Reset()

	_, err := Register[parsedEvent](
		WithParser("At", func(s string) (any, error) {
			secs, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, err
			}
			return time.Unix(secs, 0).UTC(), nil
		}),
		WithParser("Level", func(s string) (any, error) {
			switch strings.ToLower(s) {
			case "low":
				return 1, nil
			case "high":
				return 9, nil
			}
			return nil, fmt.Errorf("unknown level %q", s)
		}),
		WithParser("Code", func(s string) (any, error) {
			if s == "" {
				return nil, nil
			}
			return strings.ToUpper(s), nil
		}),
	)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	got, err := Decode[parsedEvent](map[string]any{"at": "86400", "level": "HIGH", "code": "e1"})
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !got.At.Equal(time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)) || got.Level != 9 || got.Code == nil || *got.Code != "E1" {
		t.Errorf("Decode() = %+v", got)
	}

	got, err = Decode[parsedEvent](map[string]any{"at": "2024-01-01T00:00:00Z", "level": 3, "code": ""})
	if err == nil {
		t.Fatalf("Decode() = %+v, want parser error for at", got)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Path != "at" || de.Cause == nil {
		t.Errorf("Decode() error = %v", err)
	}

	got, err = Decode[parsedEvent](map[string]any{"at": time.Unix(0, 0).UTC(), "level": 3, "code": ""})
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.Level != 3 || got.Code != nil {
		t.Errorf("non-string input should bypass parsers: %+v", got)
	}

	if _, err := Decode[parsedEvent](map[string]any{"at": "0", "level": "medium"}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Decode() error = %v, want ErrTypeMismatch", err)
	}
}

type point struct {
	X, Y int
}

func (p point) MarshalDocument() (map[string]any, error) {
	return map[string]any{"xy": fmt.Sprintf("%d,%d", p.X, p.Y)}, nil
}

func (p *point) UnmarshalDocument(doc map[string]any) error {
	s, _ := doc["xy"].(string)
	_, err := fmt.Sscanf(s, "%d,%d", &p.X, &p.Y)
	return err
}

type figure struct {
	Name   string  `doc:"name"`
	Origin point   `doc:"origin"`
	Path   []point `doc:"path"`
}

func TestDocumentOverrides(t *testing.T) {
	in := figure{Name: "tri", Origin: point{1, 2}, Path: []point{{3, 4}}}
	doc, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	want := map[string]any{
		"name":   "tri",
		"origin": map[string]any{"xy": "1,2"},
		"path":   []any{map[string]any{"xy": "3,4"}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}

	out, err := Decode[figure](doc)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(in, *out); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestArrayFields(t *testing.T) {
	in := descFixed{
		Tags:  [3]string{"a", "b", "c"},
		Grid:  [2][2]int{{1, 2}, {3, 4}},
		Lines: [1]descLine{{SKU: "x", Qty: 2}},
	}

	doc, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if diff := cmp.Diff([]any{"a", "b", "c"}, doc["tags"]); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}

	out, err := Decode[descFixed](doc)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if *out != in {
		t.Errorf("Decode() = %+v, want %+v", *out, in)
	}

	doc["tags"] = []any{"a", "b"}
	_, err = Decode[descFixed](doc)
	var de *DecodeError
	if !errors.As(err, &de) || de.Kind != TypeMismatch || de.Path != "tags" {
		t.Errorf("Decode(short array) error = %v, want TypeMismatch at tags", err)
	}
}
