package json

import (
	"testing"

	"github.com/zoobzio/quarry"
)

type widget struct {
	Name   string   `doc:"name"`
	Count  int      `doc:"count"`
	Price  float64  `doc:"price"`
	Tags   []string `doc:"tags"`
	Note   *string  `doc:"note"`
	Detail detail   `doc:"detail"`
}

type detail struct {
	OK bool `doc:"ok"`
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/json")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	c := New()

	original := widget{Name: "bolt", Count: 3, Price: 1.25, Tags: []string{"a", "b"}, Detail: detail{OK: true}}
	doc, err := quarry.Encode(original)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	data, err := c.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored any
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	m, ok := restored.(map[string]any)
	if !ok {
		t.Fatalf("Unmarshal() produced %T, want map[string]any", restored)
	}
	if _, ok := m["detail"].(map[string]any); !ok {
		t.Errorf("nested document is %T, want map[string]any", m["detail"])
	}
	if _, ok := m["tags"].([]any); !ok {
		t.Errorf("sequence is %T, want []any", m["tags"])
	}

	got, err := quarry.Decode[widget](restored)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.Name != original.Name || got.Count != original.Count || got.Price != original.Price {
		t.Errorf("round-trip scalars: got %+v, want %+v", *got, original)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "b" {
		t.Errorf("round-trip tags: got %v", got.Tags)
	}
	if got.Note != nil {
		t.Errorf("absent optional should stay nil, got %q", *got.Note)
	}
	if !got.Detail.OK {
		t.Error("nested record lost its value")
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := New()

	var v any
	if err := c.Unmarshal([]byte("{invalid json"), &v); err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}
