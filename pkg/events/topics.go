package events

import "encoding/xml"

// schemaNamespace marks payload-description elements inside the topic
// tree. MessageDescription subtrees describe message layouts, not topics,
// and are skipped during parsing.
const schemaNamespace = "http://www.onvif.org/ver10/schema"

// TopicNode is one element of the device topic tree.
type TopicNode struct {
	// Name is the element's local name; namespace prefixes are not part
	// of the path.
	Name string

	// Topic is the wstop:topic flag: the device accepts this path in
	// subscription filters.
	Topic bool

	Children []*TopicNode
}

// TopicSet is the forest of topic roots a device advertises. Decoded from
// the GetEventProperties response, where each topic is an arbitrary
// namespaced element.
type TopicSet struct {
	Roots []*TopicNode
}

// UnmarshalXML builds the forest from the TopicSet element's children.
func (ts *TopicSet) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == schemaNamespace {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			node, err := parseTopicNode(d, t)
			if err != nil {
				return err
			}
			ts.Roots = append(ts.Roots, node)
		case xml.EndElement:
			return nil
		}
	}
}

func parseTopicNode(d *xml.Decoder, start xml.StartElement) (*TopicNode, error) {
	node := &TopicNode{Name: start.Name.Local}
	for _, attr := range start.Attr {
		if attr.Name.Local == "topic" && attr.Value == "true" {
			node.Topic = true
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == schemaNamespace {
				if err := d.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			child, err := parseTopicNode(d, t)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		case xml.EndElement:
			return node, nil
		}
	}
}

// Walk visits every topic path depth-first, parents before children and
// siblings in document order. The path of a node is its name joined to
// the parent path with a slash. visit returning false stops the walk
// immediately. Each call restarts from the roots; there is no shared
// cursor.
func (ts TopicSet) Walk(visit func(path string) bool) {
	ts.walkNodes(func(path string, _ *TopicNode) bool {
		return visit(path)
	})
}

func (ts TopicSet) walkNodes(visit func(path string, n *TopicNode) bool) {
	var walk func(prefix string, n *TopicNode) bool
	walk = func(prefix string, n *TopicNode) bool {
		path := n.Name
		if prefix != "" {
			path = prefix + "/" + n.Name
		}
		if !visit(path, n) {
			return false
		}
		for _, child := range n.Children {
			if !walk(path, child) {
				return false
			}
		}
		return true
	}
	for _, root := range ts.Roots {
		if !walk("", root) {
			return
		}
	}
}

// Paths returns every topic path of a full walk.
func (ts TopicSet) Paths() []string {
	var out []string
	ts.Walk(func(path string) bool {
		out = append(out, path)
		return true
	})
	return out
}

// Topics returns the paths the device flags as subscribable.
func (ts TopicSet) Topics() []string {
	var out []string
	ts.walkNodes(func(path string, n *TopicNode) bool {
		if n.Topic {
			out = append(out, path)
		}
		return true
	})
	return out
}
