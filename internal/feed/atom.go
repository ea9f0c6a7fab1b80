// Package feed renders recent catalog additions as an Atom document.
package feed

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/mkpublisher/showcase/internal/remote"
)

const (
	atomNS = "http://www.w3.org/2005/Atom"
	// MaxEntries is the number of projects listed in the feed.
	MaxEntries = 20
)

// Options describe the feed itself.
type Options struct {
	Title   string
	BaseURL string
	Author  string
	// Now is used as the feed's updated time when there are no entries.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "MK Publisher"
	}
	if o.Author == "" {
		o.Author = "MK Publisher"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	return o
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Build returns the Atom document for projects, which must already be ordered
// newest first. At most MaxEntries are included.
func Build(projects []remote.Project, opts Options) *etree.Document {
	opts = opts.withDefaults()
	if len(projects) > MaxEntries {
		projects = projects[:MaxEntries]
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	feed := doc.CreateElement("feed")
	feed.CreateAttr("xmlns", atomNS)
	feed.CreateElement("title").SetText(opts.Title)
	feed.CreateElement("id").SetText(opts.BaseURL + "/")

	self := feed.CreateElement("link")
	self.CreateAttr("rel", "self")
	self.CreateAttr("href", opts.BaseURL+"/feed.xml")
	alt := feed.CreateElement("link")
	alt.CreateAttr("href", opts.BaseURL+"/")

	updated := opts.Now()
	if len(projects) > 0 {
		updated = projects[0].CreatedAt
	}
	feed.CreateElement("updated").SetText(stamp(updated))
	feed.CreateElement("author").CreateElement("name").SetText(opts.Author)

	for _, p := range projects {
		entry := feed.CreateElement("entry")
		entry.CreateElement("title").SetText(p.Title)
		entry.CreateElement("id").SetText(fmt.Sprintf("%s/#project-%s", opts.BaseURL, p.ID))
		entry.CreateElement("updated").SetText(stamp(p.CreatedAt))
		entry.CreateElement("published").SetText(stamp(p.CreatedAt))

		link := entry.CreateElement("link")
		link.CreateAttr("href", p.Link)

		if p.Category != nil && *p.Category != "" {
			cat := entry.CreateElement("category")
			cat.CreateAttr("term", *p.Category)
		}
		entry.CreateElement("summary").SetText(fmt.Sprintf("%s (rated %.1f)", p.Title, p.Rating))
	}

	doc.Indent(2)
	return doc
}

// Write renders the feed to w.
func Write(w io.Writer, projects []remote.Project, opts Options) error {
	if _, err := Build(projects, opts).WriteTo(w); err != nil {
		return fmt.Errorf("write atom feed: %w", err)
	}
	return nil
}
