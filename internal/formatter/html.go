package formatter

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const maxTableColumnWidth = 60

var (
	horizontalSpace = regexp.MustCompile(`[ \t\r\f\v]+`)
	anyWhitespace   = regexp.MustCompile(`\s+`)
	spaceAroundLF   = regexp.MustCompile(` ?\n ?`)
)

// ToMarkdown converts an HTML fragment into chat markdown. Plain text passes
// through with its whitespace collapsed.
func ToMarkdown(value string, opts FormatOptions) string {
	if value == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return strings.TrimSpace(value)
	}

	w := &mdWriter{opts: opts}
	for _, n := range doc.Find("body").Nodes {
		w.children(n)
	}
	return strings.TrimSpace(string(w.buf))
}

type mdWriter struct {
	buf     []byte
	pending int
	opts    FormatOptions
}

func (w *mdWriter) atLineStart() bool {
	return len(w.buf) == 0 || w.buf[len(w.buf)-1] == '\n'
}

// block requests n line breaks before the next content.
func (w *mdWriter) block(n int) {
	if len(w.buf) == 0 {
		return
	}
	if n > w.pending {
		w.pending = n
	}
}

func (w *mdWriter) flush() {
	if w.pending == 0 {
		return
	}
	for len(w.buf) > 0 && w.buf[len(w.buf)-1] == ' ' {
		w.buf = w.buf[:len(w.buf)-1]
	}
	have := 0
	for i := len(w.buf) - 1; i >= 0 && w.buf[i] == '\n'; i-- {
		have++
	}
	for ; have < w.pending; have++ {
		w.buf = append(w.buf, '\n')
	}
	w.pending = 0
}

// literal writes s without whitespace processing.
func (w *mdWriter) literal(s string) {
	if s == "" {
		return
	}
	w.flush()
	if s[0] == ' ' && (w.atLineStart() || w.buf[len(w.buf)-1] == ' ') {
		s = s[1:]
	}
	w.buf = append(w.buf, s...)
}

func (w *mdWriter) text(s string) {
	if w.opts.IgnoreNewLines {
		s = anyWhitespace.ReplaceAllString(s, " ")
	} else {
		s = horizontalSpace.ReplaceAllString(s, " ")
		s = spaceAroundLF.ReplaceAllString(s, "\n")
	}

	switch {
	case w.pending > 0:
		s = strings.TrimLeft(s, " \n")
	case w.atLineStart() || w.buf[len(w.buf)-1] == ' ':
		s = strings.TrimLeft(s, " ")
	}
	if s == "" {
		return
	}
	w.flush()
	w.buf = append(w.buf, s...)
}

func (w *mdWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

func (w *mdWriter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
	default:
		w.children(n)
		return
	}

	switch n.Data {
	case "script", "style", "head", "title":
	case "br":
		w.flush()
		w.buf = append(w.buf, '\n')
	case "p", "ul", "ol", "blockquote", "table":
		w.blockElement(n, 2)
	case "div", "li", "tr", "section", "article", "header", "footer":
		w.blockElement(n, 1)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.block(2)
		w.literal("**")
		w.children(n)
		w.literal("**")
		w.block(2)
	case "hr":
		w.block(2)
		w.literal("---")
		w.block(2)
	case "strong", "b":
		w.strong(n)
	case "em", "i":
		w.literal("*")
		w.children(n)
		w.literal("*")
	case "u":
		w.literal("__")
		w.children(n)
		w.literal("__")
	case "code":
		w.literal("`")
		w.children(n)
		w.literal("`")
	case "pre":
		w.pre(n)
	case "a":
		w.anchor(n)
	case "img":
		w.image(n)
	default:
		w.children(n)
	}
}

func (w *mdWriter) blockElement(n *html.Node, breaks int) {
	switch n.Data {
	case "ul", "ol":
		w.list(n, breaks)
		return
	case "blockquote":
		w.quote(n)
		return
	case "table":
		w.table(n)
		return
	}
	if n.FirstChild == nil {
		return
	}
	w.block(breaks)
	w.children(n)
	w.block(breaks)
}

func (w *mdWriter) strong(n *html.Node) {
	space := " "
	if p := n.Parent; p != nil && p.Type == html.ElementNode && (p.Data == "p" || p.Data == "a") {
		space = ""
	}
	w.literal(space + "**")
	w.children(n)
	w.literal("**" + space)
}

func (w *mdWriter) list(n *html.Node, breaks int) {
	w.block(breaks)
	index := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		index++
		w.block(1)
		if n.Data == "ol" {
			w.literal(strconv.Itoa(index) + ". ")
		} else {
			w.literal("* ")
		}
		w.children(c)
	}
	w.block(breaks)
}

func (w *mdWriter) quote(n *html.Node) {
	inner := &mdWriter{opts: w.opts}
	inner.children(n)
	body := strings.TrimSpace(string(inner.buf))
	if body == "" {
		return
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}

	w.block(2)
	w.literal(strings.Join(lines, "\n"))
	w.block(2)
}

func (w *mdWriter) pre(n *html.Node) {
	if c := n.FirstChild; c != nil && c.NextSibling == nil && c.Type == html.ElementNode && c.Data == "code" {
		if t := c.FirstChild; t != nil && t.NextSibling == nil && t.Type == html.TextNode && t.Data != "" {
			w.literal("```" + t.Data + "```")
			return
		}
	}

	w.block(2)
	w.literal("```")
	w.literal(nodeText(n))
	w.literal("```")
	w.block(2)
}

func (w *mdWriter) anchor(n *html.Node) {
	href := attr(n, "href")
	if href == "" {
		w.children(n)
		return
	}

	only := n.FirstChild
	if only == nil || only.NextSibling != nil {
		w.children(n)
		return
	}

	switch {
	case only.Type == html.TextNode && only.Data == href:
		w.literal(href)
	case only.Type == html.ElementNode && only.Data == "img":
		w.children(n)
	default:
		w.literal("[")
		w.children(n)
		w.literal("](" + href + ")")
	}
}

func (w *mdWriter) image(n *html.Node) {
	if w.opts.StripImages {
		return
	}
	src := strings.TrimSpace(attr(n, "src"))
	if src == "" {
		return
	}
	if w.opts.DisableImageLinkPreviews {
		src = "<" + src + ">"
	}
	w.literal(src)
}

func (w *mdWriter) table(n *html.Node) {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data != "tr" {
				walk(c)
				continue
			}
			var row []string
			for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
					inner := &mdWriter{opts: w.opts}
					inner.children(cell)
					row = append(row, strings.TrimSpace(anyWhitespace.ReplaceAllString(string(inner.buf), " ")))
				}
			}
			rows = append(rows, row)
		}
	}
	walk(n)
	if len(rows) == 0 {
		return
	}

	w.block(2)
	if !w.opts.FormatTables {
		for _, row := range rows {
			w.block(1)
			w.literal(strings.Join(row, " "))
		}
		w.block(2)
		return
	}

	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			l := utf8.RuneCountInString(cell)
			if l > maxTableColumnWidth {
				l = maxTableColumnWidth
			}
			if i >= len(widths) {
				widths = append(widths, l)
			} else if l > widths[i] {
				widths[i] = l
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(truncateRunes(cell, maxTableColumnWidth), widths[i])
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "   "), " "))
	}

	w.literal("```" + strings.Join(lines, "\n") + "```")
	w.block(2)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
