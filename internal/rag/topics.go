package rag

import (
	"fmt"
	"slices"
	"strings"

	"github.com/akolanti/PortfolioRAG/internal/domain/commonModels"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
)

// TopicRegistry is the configured set of topics. It is read-only once built.
type TopicRegistry struct {
	byName map[string]commonModels.Topic
	names  []string
}

func NewTopicRegistry(topics []commonModels.Topic) (*TopicRegistry, error) {
	if len(topics) == 0 {
		return nil, ragErrors.Newf(ragErrors.Configuration, "topics", "no topics configured")
	}
	r := &TopicRegistry{byName: make(map[string]commonModels.Topic, len(topics))}
	for _, t := range topics {
		if t.Name == "" {
			return nil, ragErrors.Newf(ragErrors.Configuration, "topics", "topic without a name")
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, ragErrors.Newf(ragErrors.Configuration, "topics", "topic %q configured twice", t.Name)
		}
		r.byName[t.Name] = t
		r.names = append(r.names, t.Name)
	}
	return r, nil
}

// Resolve returns the topic or an error matching ragErrors.ErrInvalidTopic.
func (r *TopicRegistry) Resolve(name string) (commonModels.Topic, error) {
	t, ok := r.byName[name]
	if !ok {
		err := fmt.Errorf("%w: must be one of: %s", ragErrors.ErrInvalidTopic, strings.Join(r.names, ", "))
		return commonModels.Topic{}, ragErrors.New(ragErrors.InvalidInput, "topic", err).WithTopic(name)
	}
	return t, nil
}

func (r *TopicRegistry) Names() []string {
	return slices.Clone(r.names)
}
