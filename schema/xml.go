package schema

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// XML schema source (spec.md §6.1). No third-party XML library appears
// anywhere in the retrieval pack for this shape of document (element +
// attribute mirroring a typed struct); encoding/xml is the stdlib's
// well-trodden tool for exactly this, so it is used directly rather than
// pulling in a dependency with no pack precedent (see DESIGN.md).

type xmlSchema struct {
	XMLName xml.Name      `xml:"schema"`
	TopNode string        `xml:"top-node,attr"`
	Include []xmlInclude  `xml:"include"`
	Nodes   []xmlNodeSpec `xml:"node"`
	Marks   []xmlMarkSpec `xml:"mark"`
}

type xmlInclude struct {
	Href string `xml:"href,attr"`
}

type xmlNodeSpec struct {
	Name    string     `xml:"name,attr"`
	Content string     `xml:"content,attr"`
	Marks   string      `xml:"marks,attr"`
	Group   string      `xml:"group,attr"`
	Desc    string      `xml:"desc,attr"`
	Attrs   []xmlAttr   `xml:"attr"`
}

type xmlMarkSpec struct {
	Name     string    `xml:"name,attr"`
	Excludes string    `xml:"excludes,attr"`
	Group    string    `xml:"group,attr"`
	Spanning string    `xml:"spanning,attr"`
	Desc     string    `xml:"desc,attr"`
	Attrs    []xmlAttr `xml:"attr"`
}

type xmlAttr struct {
	Name    string `xml:"name,attr"`
	Default string `xml:"default,attr"`
	HasDef  bool   `xml:"-"`
}

// LoadXMLFile parses the SchemaSpec XML form, resolving <include href="..."/>
// elements relative to the importing file and rejecting circular includes.
func LoadXMLFile(path string) (SchemaSpec, error) {
	return loadXMLFile(path, map[string]bool{})
}

func loadXMLFile(path string, visiting map[string]bool) (SchemaSpec, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return SchemaSpec{}, errors.Wrapf(err, "schema xml: resolving path %q", path)
	}
	if visiting[abs] {
		return SchemaSpec{}, newCompileError("circular schema include detected at %q", abs)
	}
	visiting[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return SchemaSpec{}, errors.Wrapf(err, "schema xml: reading %q", abs)
	}
	var doc xmlSchema
	if err := xml.Unmarshal(data, &doc); err != nil {
		return SchemaSpec{}, errors.Wrapf(err, "schema xml: parsing %q", abs)
	}

	spec := SchemaSpec{Nodes: map[string]NodeSpec{}, Marks: map[string]MarkSpec{}, TopNode: doc.TopNode}

	dir := filepath.Dir(abs)
	for _, inc := range doc.Include {
		incPath := inc.Href
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, incPath)
		}
		sub, err := loadXMLFile(incPath, visiting)
		if err != nil {
			return SchemaSpec{}, err
		}
		for name, ns := range sub.Nodes {
			spec.Nodes[name] = ns
		}
		for name, ms := range sub.Marks {
			spec.Marks[name] = ms
		}
		if spec.TopNode == "" {
			spec.TopNode = sub.TopNode
		}
	}

	for _, n := range doc.Nodes {
		spec.Nodes[n.Name] = NodeSpec{
			Content: n.Content,
			Marks:   n.Marks,
			Group:   n.Group,
			Desc:    n.Desc,
			Attrs:   toAttrSpecs(n.Attrs),
		}
	}
	for _, m := range doc.Marks {
		var spanning *bool
		if m.Spanning != "" {
			v := m.Spanning == "true"
			spanning = &v
		}
		spec.Marks[m.Name] = MarkSpec{
			Attrs:    toAttrSpecs(m.Attrs),
			Excludes: m.Excludes,
			Group:    m.Group,
			Spanning: spanning,
			Desc:     m.Desc,
		}
	}

	return spec, nil
}

func toAttrSpecs(xa []xmlAttr) map[string]AttrSpec {
	if len(xa) == 0 {
		return nil
	}
	out := make(map[string]AttrSpec, len(xa))
	for _, a := range xa {
		spec := AttrSpec{}
		if a.Default != "" {
			var v interface{}
			if err := json.Unmarshal([]byte(a.Default), &v); err == nil {
				spec.Default = v
			} else {
				spec.Default = a.Default
			}
			spec.HasDefault = true
		}
		out[a.Name] = spec
	}
	return out
}
