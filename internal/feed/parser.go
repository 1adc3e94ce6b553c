// Package feed parses fetched RSS/Atom documents into raw article items.
package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	apperrors "monitorss/pkg/errors"
)

// Document is a parsed feed.
type Document struct {
	Title string
	Link  string
	Items []map[string]interface{}
}

// Parser converts feed XML into raw item maps keyed the way article
// placeholders are named (title, description, pubdate, author__name, ...).
type Parser struct {
	parser *gofeed.Parser
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{parser: gofeed.NewParser()}
}

// Parse parses one document. Documents that are not a feed are validation errors.
func (p *Parser) Parse(ctx context.Context, document string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed, err := p.parser.ParseString(document)
	if err != nil {
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, apperrors.ErrValidation.
				WithCause(err).
				WithDetail("reason", "invalid feed")
		}
		return nil, apperrors.ErrValidation.WithCause(err)
	}

	doc := &Document{
		Title: parsed.Title,
		Link:  parsed.Link,
		Items: make([]map[string]interface{}, 0, len(parsed.Items)),
	}
	for _, item := range parsed.Items {
		doc.Items = append(doc.Items, itemToRaw(parsed, item))
	}
	return doc, nil
}

func itemToRaw(f *gofeed.Feed, item *gofeed.Item) map[string]interface{} {
	raw := map[string]interface{}{
		"title":       item.Title,
		"description": firstNonEmpty(item.Content, item.Description),
		"summary":     item.Description,
		"link":        item.Link,
		"guid":        item.GUID,
		"categories":  item.Categories,
	}

	if len(item.Links) > 1 {
		raw["links"] = item.Links
	}
	if item.PublishedParsed != nil {
		raw["pubdate"] = item.PublishedParsed.UTC()
	}
	if updated := updatedOrPublished(item); updated != nil {
		raw["date"] = updated.UTC()
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		raw["author"] = map[string]interface{}{
			"name":  item.Authors[0].Name,
			"email": item.Authors[0].Email,
		}
	}
	if item.Image != nil {
		raw["image"] = map[string]interface{}{
			"url":   item.Image.URL,
			"title": item.Image.Title,
		}
	}
	if len(item.Enclosures) > 0 {
		enclosures := make([]interface{}, 0, len(item.Enclosures))
		for _, e := range item.Enclosures {
			if e == nil {
				continue
			}
			enclosures = append(enclosures, map[string]interface{}{
				"url":    e.URL,
				"type":   e.Type,
				"length": e.Length,
			})
		}
		raw["enclosures"] = enclosures
	}
	if len(item.Custom) > 0 {
		custom := make(map[string]interface{}, len(item.Custom))
		for k, v := range item.Custom {
			custom[k] = v
		}
		raw["custom"] = custom
	}

	raw["meta"] = map[string]interface{}{
		"title": f.Title,
		"link":  f.Link,
	}

	return raw
}

func updatedOrPublished(item *gofeed.Item) *time.Time {
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	return item.PublishedParsed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
