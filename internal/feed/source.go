package feed

import "context"

// Source supplies the raw items of one feed cycle.
type Source interface {
	Items(ctx context.Context) ([]map[string]interface{}, error)
}

// StaticSource serves items that were already parsed upstream.
type StaticSource []map[string]interface{}

func (s StaticSource) Items(_ context.Context) ([]map[string]interface{}, error) {
	return s, nil
}

// DocumentSource parses a fetched document on demand.
type DocumentSource struct {
	Parser   *Parser
	Document string
}

func (s DocumentSource) Items(ctx context.Context) ([]map[string]interface{}, error) {
	doc, err := s.Parser.Parse(ctx, s.Document)
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}
