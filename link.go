package docindex

import "context"

// Link relation types.
const (
	RelationLinksTo   = "links_to"
	RelationRelatesTo = "relates_to"
)

// Direction describes how a related document is connected.
type Direction string

// Direction values for Related.
const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Link is a directed edge between two document paths.
type Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// Related is a document connected to another one by a link.
type Related struct {
	Path      string    `json:"path"`
	Relation  string    `json:"relation"`
	Direction Direction `json:"direction"`
}

// LinkFilter represents a filter for FindLinks.
type LinkFilter struct {
	Source   *string `json:"source"`
	Target   *string `json:"target"`
	Relation *string `json:"relation"`

	Limit int `json:"limit"`
}

// LinkService provides traversal of the document link graph.
type LinkService interface {
	// FindRelated returns documents linked to or from path. An empty
	// relation matches every relation type.
	FindRelated(ctx context.Context, path string, relation string) ([]*Related, error)

	// FindLinks retrieves links matching the filter.
	FindLinks(ctx context.Context, filter LinkFilter) ([]*Link, error)
}
