package neo4j

import (
	"time"

	"chatarchive/domain/core/entities"
	"chatarchive/domain/core/valueobjects"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(v any) time.Time {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func entryProps(e *entities.Entry) map[string]any {
	embedding := make([]float64, len(e.Embedding()))
	for i, v := range e.Embedding() {
		embedding[i] = float64(v)
	}
	return map[string]any{
		"id":          e.ID(),
		"title":       e.Title(),
		"summary":     e.Summary(),
		"tags":        e.Tags(),
		"sourceLabel": e.SourceLabel(),
		"bodyText":    e.BodyText(),
		"embedding":   embedding,
		"createdAt":   formatTime(e.CreatedAt()),
		"updatedAt":   formatTime(e.UpdatedAt()),
	}
}

func entryFromNode(n neo4j.Node) *entities.Entry {
	p := n.Props
	var embedding []float32
	if raw, ok := p["embedding"].([]any); ok && len(raw) > 0 {
		embedding = make([]float32, 0, len(raw))
		for _, v := range raw {
			f, _ := v.(float64)
			embedding = append(embedding, float32(f))
		}
	}
	return entities.ReconstructEntry(
		str(p["id"]), str(p["title"]), str(p["summary"]), stringList(p["tags"]),
		str(p["sourceLabel"]), str(p["bodyText"]), embedding,
		parseTime(p["createdAt"]), parseTime(p["updatedAt"]),
	)
}

func entriesFrom(result *neo4j.EagerResult) []*entities.Entry {
	out := make([]*entities.Entry, 0, len(result.Records))
	for _, rec := range result.Records {
		raw, ok := rec.Get("e")
		if !ok {
			continue
		}
		if node, ok := raw.(neo4j.Node); ok {
			out = append(out, entryFromNode(node))
		}
	}
	return out
}

// relationshipFrom reads a row returned as source, target, kind, score,
// createdAt, updatedAt.
func relationshipFrom(rec *neo4j.Record) (entities.Relationship, error) {
	get := func(key string) any {
		v, _ := rec.Get(key)
		return v
	}
	kind, err := valueobjects.ParseRelationshipKind(str(get("kind")))
	if err != nil {
		return entities.Relationship{}, err
	}
	score, _ := get("score").(float64)
	return entities.Relationship{
		SourceID:  str(get("source")),
		TargetID:  str(get("target")),
		Kind:      kind,
		Score:     valueobjects.ClampScore(score),
		CreatedAt: parseTime(get("createdAt")),
		UpdatedAt: parseTime(get("updatedAt")),
	}, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func stringList(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
