package article

import (
	"regexp"
	"strings"
)

// PostProcessRule names a source-specific normalization applied after flattening.
type PostProcessRule string

const (
	RuleRedditCommentLink PostProcessRule = "REDDIT_COMMENT_LINK"
)

const (
	KeyProcessedCategories = "processed::categories"
	KeyRedditDescription   = "processed::description::reddit1"
	redditLinkMarker       = "[link]"
	redditCommentsMarker   = "[comments]"
)

var ruleURLPatterns = []struct {
	rule    PostProcessRule
	pattern *regexp.Regexp
}{
	{rule: RuleRedditCommentLink, pattern: regexp.MustCompile(`(?i)^https?://([a-z0-9-]+\.)?reddit\.com/`)},
}

// RulesForURL returns the post-process rules whose URL pattern matches feedURL.
func RulesForURL(feedURL string) []PostProcessRule {
	var rules []PostProcessRule
	for _, r := range ruleURLPatterns {
		if r.pattern.MatchString(feedURL) {
			rules = append(rules, r.rule)
		}
	}
	return rules
}

func runPreProcessRules(raw map[string]interface{}) map[string]string {
	out := make(map[string]string)

	switch categories := raw["categories"].(type) {
	case []string:
		out[KeyProcessedCategories] = strings.Join(categories, ",")
	case []interface{}:
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			s, ok := c.(string)
			if !ok {
				return out
			}
			names = append(names, s)
		}
		out[KeyProcessedCategories] = strings.Join(names, ",")
	}

	return out
}

func runPostProcessRules(record map[string]string, rules []PostProcessRule) map[string]string {
	for _, rule := range rules {
		switch rule {
		case RuleRedditCommentLink:
			if description, ok := record["description"]; ok {
				stripped := strings.Replace(description, redditLinkMarker, "", 1)
				record[KeyRedditDescription] = strings.Replace(stripped, redditCommentsMarker, "", 1)
			}
		}
	}
	return record
}
