package graph

import (
	"slices"
	"strings"
)

// ExpandTopicName resolves a registered topic name against the owning node:
// "{node}" and "{ns}"/"{namespace}" are substituted, a leading "~" becomes the
// node's fully qualified name and relative names are prefixed with the
// namespace.
func ExpandTopicName(name, nodeName, namespace string) string {
	if namespace == "" {
		namespace = "/"
	}
	if !strings.HasPrefix(namespace, "/") {
		namespace = "/" + namespace
	}
	ns := strings.TrimSuffix(namespace, "/")

	expanded := strings.NewReplacer(
		"{node}", nodeName,
		"{namespace}", namespace,
		"{ns}", namespace,
	).Replace(name)

	switch {
	case expanded == "":
		return expanded
	case strings.HasPrefix(expanded, "~"):
		expanded = ns + "/" + nodeName + strings.TrimPrefix(expanded, "~")
	case !strings.HasPrefix(expanded, "/"):
		expanded = ns + "/" + expanded
	}
	for strings.Contains(expanded, "//") {
		expanded = strings.ReplaceAll(expanded, "//", "/")
	}
	return expanded
}

// RebuildTopics expands every endpoint's topic name and regroups the topic
// index. It is safe to call repeatedly.
func (g *Graph) RebuildTopics() {
	g.topics = map[string]*Topic{}
	topic := func(name string) *Topic {
		t, ok := g.topics[name]
		if !ok {
			t = &Topic{Name: name}
			g.topics[name] = t
		}
		return t
	}

	for _, p := range g.publishers.items {
		p.Topic = g.expand(&p.Endpoint)
		if p.Topic == "" {
			continue
		}
		t := topic(p.Topic)
		t.Publishers = append(t.Publishers, p.ID)
	}
	for _, s := range g.subscriptions.items {
		s.Topic = g.expand(&s.Endpoint)
		if s.Topic == "" {
			continue
		}
		t := topic(s.Topic)
		t.Subscriptions = append(t.Subscriptions, s.ID)
	}
}

func (g *Graph) expand(e *Endpoint) string {
	if n := g.nodes.get(e.Node); n != nil {
		return ExpandTopicName(e.TopicName, n.Name, n.Namespace)
	}
	return ExpandTopicName(e.TopicName, "", "/")
}

// Topic returns the topic with the given fully qualified name.
func (g *Graph) Topic(name string) (*Topic, bool) {
	t, ok := g.topics[name]
	return t, ok
}

// Topics returns every topic sorted by name.
func (g *Graph) Topics() []*Topic {
	out := make([]*Topic, 0, len(g.topics))
	for _, t := range g.topics {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Topic) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// TopicFilter selects which infrastructure topics queries keep.
type TopicFilter struct {
	IncludeRosout          bool
	IncludeParameterEvents bool
}

// Keep reports whether a topic passes the filter.
func (f TopicFilter) Keep(topic string) bool {
	if !f.IncludeRosout && strings.Contains(topic, "rosout") {
		return false
	}
	if !f.IncludeParameterEvents && strings.Contains(topic, "parameter_events") {
		return false
	}
	return true
}

// FilterPublishers returns the publishers whose topic passes f.
func (g *Graph) FilterPublishers(ids []PublisherID, f TopicFilter) []*Publisher {
	var out []*Publisher
	for _, id := range ids {
		if p := g.publishers.get(id); p != nil && f.Keep(p.Topic) {
			out = append(out, p)
		}
	}
	return out
}

// FilterSubscriptions returns the subscriptions whose topic passes f.
func (g *Graph) FilterSubscriptions(ids []SubscriptionID, f TopicFilter) []*Subscription {
	var out []*Subscription
	for _, id := range ids {
		if s := g.subscriptions.get(id); s != nil && f.Keep(s.Topic) {
			out = append(out, s)
		}
	}
	return out
}
