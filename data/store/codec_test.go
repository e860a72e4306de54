package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/domain"
)

type sampleRecord struct {
	domain.Entity
	Title  string   `json:"title"`
	Amount float64  `json:"amount"`
	Tags   []string `json:"tags"`
	Note   *string  `json:"note,omitempty"`
	Hidden string   `json:"-"`
	Phone  string   `json:"phone,omitempty"`
}

func TestEncode(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("CST", 8*3600))
	rec := sampleRecord{
		Entity: domain.Entity{ID: "n1", CreatedAt: created},
		Title:  "hello",
		Amount: 12.5,
		Tags:   []string{"a", "b"},
		Hidden: "secret",
	}

	doc, err := Encode(&rec)
	require.NoError(t, err)

	assert.Equal(t, "n1", doc["id"])
	assert.Equal(t, created.UTC(), doc["createdAt"])
	assert.Equal(t, []any{"a", "b"}, doc["tags"])
	assert.Equal(t, 12.5, doc["amount"])
	assert.NotContains(t, doc, "deletedAt")
	assert.NotContains(t, doc, "note")
	assert.NotContains(t, doc, "phone")
	assert.NotContains(t, doc, "Hidden")
}

func TestEncode_PatchPointers(t *testing.T) {
	type patch struct {
		Title  *string  `json:"title,omitempty"`
		Amount *float64 `json:"amount,omitempty"`
	}
	title := "new"

	doc, err := Encode(patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, Document{"title": "new"}, doc)
}

func TestEncode_RejectsNonStruct(t *testing.T) {
	_, err := Encode(42)
	assert.Error(t, err)

	var nilRec *sampleRecord
	_, err = Encode(nilRec)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	deleted := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	doc := Document{
		"id":        "n2",
		"title":     "t",
		"tags":      []any{"x"},
		"deletedAt": deleted,
		"amount":    int64(3),
	}

	var rec sampleRecord
	require.NoError(t, Decode(doc, &rec))

	assert.Equal(t, "n2", rec.ID)
	assert.Equal(t, []string{"x"}, rec.Tags)
	assert.Equal(t, 3.0, rec.Amount)
	require.NotNil(t, rec.DeletedAt)
	assert.True(t, deleted.Equal(*rec.DeletedAt))
}

func TestCloneAndMerge(t *testing.T) {
	doc := Document{"tags": []any{"a"}, "title": "x", "deletedAt": time.Now()}
	cp := Clone(doc)
	cp["tags"].([]any)[0] = "changed"
	assert.Equal(t, "a", doc["tags"].([]any)[0])

	Merge(doc, Document{"title": "y", "deletedAt": nil})
	assert.Equal(t, "y", doc["title"])
	assert.NotContains(t, doc, "deletedAt")
}
