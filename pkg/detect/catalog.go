// Package detect queries the object detection service.
package detect

import "strings"

// Object is a recognizable object: the spoken phrase and the name the
// detection service knows it by.
type Object struct {
	Phrase string `json:"phrase"`
	Name   string `json:"name"`
}

// Catalog is an ordered list of objects. Order is query order.
type Catalog struct {
	objects []Object
}

// DefaultObjects is the stock catalog.
var DefaultObjects = []Object{
	{Phrase: "瓶子", Name: "bottle"},
	{Phrase: "背包", Name: "bag"},
	{Phrase: "玩具", Name: "toys"},
	{Phrase: "水杯", Name: "cup"},
	{Phrase: "枕头", Name: "pillow"},
	{Phrase: "椅子", Name: "chair"},
	{Phrase: "显示器", Name: "monitor"},
}

// NewCatalog creates a catalog. With no objects it uses DefaultObjects.
func NewCatalog(objects ...Object) *Catalog {
	if len(objects) == 0 {
		objects = DefaultObjects
	}
	c := &Catalog{objects: make([]Object, len(objects))}
	copy(c.objects, objects)
	return c
}

// Match returns the service names of every object whose phrase occurs in
// text, in catalog order. Each object is returned at most once.
func (c *Catalog) Match(text string) []string {
	var names []string
	for _, o := range c.objects {
		if o.Phrase != "" && strings.Contains(text, o.Phrase) {
			names = append(names, o.Name)
		}
	}
	return names
}

// Objects returns a copy of the catalog.
func (c *Catalog) Objects() []Object {
	out := make([]Object, len(c.objects))
	copy(out, c.objects)
	return out
}
