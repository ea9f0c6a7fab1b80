package feed

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkpublisher/showcase/internal/remote"
)

func TestBuild_Entries(t *testing.T) {
	featured := "featured"
	t1 := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	projects := []remote.Project{
		{ID: "2", Title: "Consilium", Link: "https://consilium.example", Rating: 4.5, CreatedAt: t1, Category: &featured},
		{ID: "1", Title: "Aries App", Link: "https://aries.example", CreatedAt: t1.Add(-time.Hour)},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, projects, Options{BaseURL: "https://mkp.example/"}))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))
	root := doc.SelectElement("feed")
	require.NotNil(t, root)
	assert.Equal(t, atomNS, root.SelectAttrValue("xmlns", ""))
	assert.Equal(t, "2024-05-02T10:00:00Z", root.SelectElement("updated").Text())

	entries := root.SelectElements("entry")
	require.Len(t, entries, 2)
	assert.Equal(t, "Consilium", entries[0].SelectElement("title").Text())
	assert.Equal(t, "https://mkp.example/#project-2", entries[0].SelectElement("id").Text())
	assert.Equal(t, "https://consilium.example", entries[0].SelectElement("link").SelectAttrValue("href", ""))
	assert.Equal(t, "featured", entries[0].SelectElement("category").SelectAttrValue("term", ""))
	assert.Nil(t, entries[1].SelectElement("category"))
}

func TestBuild_CapsEntries(t *testing.T) {
	var projects []remote.Project
	for i := 0; i < MaxEntries+5; i++ {
		projects = append(projects, remote.Project{ID: fmt.Sprint(i), Title: fmt.Sprint("p", i)})
	}
	doc := Build(projects, Options{})
	assert.Len(t, doc.SelectElement("feed").SelectElements("entry"), MaxEntries)
}

func TestBuild_EmptyUsesNow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := Build(nil, Options{Now: func() time.Time { return now }})
	assert.Equal(t, "2025-01-01T00:00:00Z", doc.SelectElement("feed").SelectElement("updated").Text())
}
