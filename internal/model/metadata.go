package model

import "strconv"

// FieldDescriptor describes one field of an index's catalog. Unique by Name
// within an index.
type FieldDescriptor struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ExampleQuery is reference material for query synthesis: a human description
// of what the query answers plus the query document itself.
type ExampleQuery struct {
	Description string                 `json:"description"`
	QueryBody   map[string]interface{} `json:"query_body"`
	Tags        []string               `json:"tags"`
}

// IndexDefinition is the full catalog entry for one searchable index.
type IndexDefinition struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ProfileName string            `json:"profile_name"`
	Fields      []FieldDescriptor `json:"fields"`
	Examples    []ExampleQuery    `json:"examples"`
}

// ConnectionProfile is a fully resolved search-engine connection. EngineType
// may be empty, in which case the dialect is inferred from host/port hints.
type ConnectionProfile struct {
	Name       string `json:"name"`
	EngineType string `json:"engine_type"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Scheme     string `json:"scheme"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// Address renders the profile as a client endpoint URL.
func (p ConnectionProfile) Address() string {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "https"
	}
	if p.Port > 0 {
		return scheme + "://" + p.Host + ":" + strconv.Itoa(p.Port)
	}
	return scheme + "://" + p.Host
}
