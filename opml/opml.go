// Package opml imports feed lists from OPML outline documents. The
// importer only produces specs; persisting them into the live
// configuration is the caller's responsibility.
package opml

import (
	"encoding/xml"
	"fmt"

	"github.com/deechtejoao/tuifeed/feed"
)

type document struct {
	XMLName xml.Name `xml:"opml"`
	Body    body     `xml:"body"`
}

type body struct {
	Outlines []outline `xml:"outline"`
}

type outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr"`
	XMLURL   string    `xml:"xmlUrl,attr"`
	Outlines []outline `xml:"outline"`
}

// Parse extracts feed specs from an OPML document. Outline entries without
// a usable xmlUrl attribute (folders, dead entries) are skipped, not fatal.
func Parse(data []byte) ([]feed.Spec, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OPML document: %w", err)
	}

	var specs []feed.Spec
	walk(doc.Body.Outlines, &specs)
	return specs, nil
}

func walk(outlines []outline, specs *[]feed.Spec) {
	for _, o := range outlines {
		if o.XMLURL != "" {
			name := o.Title
			if name == "" {
				name = o.Text
			}
			if name == "" {
				name = o.XMLURL
			}
			*specs = append(*specs, feed.Spec{Name: name, URL: o.XMLURL})
		}
		walk(o.Outlines, specs)
	}
}
