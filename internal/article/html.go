package article

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"monitorss/internal/constants"
)

// ExtractLinks returns the img src and a href values found in an HTML fragment,
// in document order.
func ExtractLinks(value string) (images, anchors []string) {
	if !strings.Contains(value, "<") {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return nil, nil
	}

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if src := strings.TrimSpace(s.AttrOr("src", "")); src != "" {
			images = append(images, src)
		}
	})
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if href := strings.TrimSpace(s.AttrOr("href", "")); href != "" {
			anchors = append(anchors, href)
		}
	})

	return images, anchors
}

// ImageKey is the placeholder holding the n-th (0-indexed) image of field.
func ImageKey(field string, n int) string {
	return field + "::image" + strconv.Itoa(n)
}

// AnchorKey is the placeholder holding the n-th (0-indexed) link of field.
func AnchorKey(field string, n int) string {
	return field + "::anchor" + strconv.Itoa(n)
}

func addExtractedLinks(record map[string]string) {
	fields := make([]string, 0, len(record))
	for k := range record {
		fields = append(fields, k)
	}

	for _, field := range fields {
		images, anchors := ExtractLinks(record[field])

		for i, src := range images {
			if i >= constants.MaxExtractedLinksPerKey {
				break
			}
			record[ImageKey(field, i)] = src
		}
		for i, href := range anchors {
			if i >= constants.MaxExtractedLinksPerKey {
				break
			}
			record[AnchorKey(field, i)] = href
		}
	}
}
