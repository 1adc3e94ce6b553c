package cel

// FilterExpressionExamples are predicates accepted by destination settings.
var FilterExpressionExamples = map[string]string{
	"title_contains":     `article["title"].contains("release")`,
	"title_matches":      `article["title"].matches("(?i)^go 1\\.[0-9]+")`,
	"has_image":          `"description::image0" in article`,
	"author_equals":      `has(article.author__name) && article.author__name == "Jane"`,
	"custom_placeholder": `article["custom::short"] != ""`,
	"feed_scoped":        `feed_id == "golang-blog" || article["link"].startsWith("https://go.dev/")`,
	"size_check":         `size(article["title"]) < 120`,
	"combined":           `"title" in article && !article["title"].lowerAscii().contains("sponsored")`,
}
