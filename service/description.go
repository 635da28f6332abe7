/*
   Copyright The Soci Snapshotter Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package service reads and writes the parts of a host service description
// that provider groups touch:
//
//	custom.<groups key>:              group name -> group variables
//	functions.<name>.<groups key>:    list of group names
//	provider.<statements key>:        shared policy statement list
//
// Everything else in the document is carried through unchanged.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/awslabs/provider-groups/groups"
	"github.com/awslabs/provider-groups/policy"
	"github.com/awslabs/provider-groups/variable"
	"github.com/containerd/errdefs"
	"github.com/containerd/log"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Keys names the fields the resolver reads.
type Keys struct {
	// Groups is the field holding the groups under `custom`, and the group
	// references of each function.
	Groups string

	// Statements is the policy statements field of a group and of `provider`.
	Statements string
}

// DefaultKeys are the field names of the serverless provider groups plugin.
var DefaultKeys = Keys{
	Groups:     "providerGroups",
	Statements: "iamRoleStatements",
}

// Description is a decoded service description.
type Description struct {
	// Format is the format the description was decoded from.
	Format Format

	// Deployment holds the groups, functions and shared statements. Changes
	// to it are written back by Encode.
	Deployment groups.Deployment

	keys Keys
	root *yaml.Node

	// decoded holds the variables of each function as read, so Encode only
	// rewrites the fields a resolution changed.
	decoded map[string]variable.Bag

	// undecodable holds shared statements that could not be decoded. They
	// are written back after the decoded ones.
	undecodable []*yaml.Node

	// keepStatements is set when the shared statements field is not a list.
	// It is then written back as it was read.
	keepStatements bool
}

// Load decodes the service description at path. The format is derived from
// the file extension.
func Load(ctx context.Context, path string, keys Keys) (*Description, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open service description %q: %w: %w", path, errdefs.ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to open service description %q: %w", path, err)
	}
	defer f.Close()

	d, err := Decode(ctx, f, format, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load service description %q: %w", path, err)
	}
	return d, nil
}

// Decode reads a service description in the given format.
//
// Only a document that can not be parsed, or whose root is not a mapping, is
// an error. Malformed groups, functions and statements are logged through
// the logger of ctx and skipped, so a reference to a skipped group is later
// reported as missing.
func Decode(ctx context.Context, r io.Reader, format Format, keys Keys) (*Description, error) {
	if keys.Groups == "" {
		keys.Groups = DefaultKeys.Groups
	}
	if keys.Statements == "" {
		keys.Statements = DefaultKeys.Statements
	}

	root, err := decodeRoot(r, format)
	if err != nil {
		return nil, err
	}
	d := &Description{
		Format:  format,
		keys:    keys,
		root:    root,
		decoded: make(map[string]variable.Bag),
	}
	d.extractGroups(ctx)
	d.extractFunctions(ctx)
	d.extractStatements(ctx)
	return d, nil
}

func decodeRoot(r io.Reader, format Format) (*yaml.Node, error) {
	var root *yaml.Node
	switch format {
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return newMapping(), nil
			}
			return nil, fmt.Errorf("failed to decode yaml: %w: %w", errdefs.ErrInvalidArgument, err)
		}
		root = &doc
		if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
			root = doc.Content[0]
		}
	case FormatTOML:
		var m map[string]any
		if err := toml.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode toml: %w: %w", errdefs.ErrInvalidArgument, err)
		}
		if m == nil {
			return newMapping(), nil
		}
		n, err := encodeNode(m)
		if err != nil {
			return nil, fmt.Errorf("failed to convert toml document: %w", err)
		}
		root = n
	default:
		return nil, fmt.Errorf("unsupported service description format %q: %w", format, errdefs.ErrInvalidArgument)
	}

	if !isMapping(root) {
		return nil, fmt.Errorf("service description must be a mapping: %w", errdefs.ErrInvalidArgument)
	}
	return resolveAlias(root), nil
}

func (d *Description) extractGroups(ctx context.Context) {
	field := "custom." + d.keys.Groups
	node := lookup(lookup(d.root, "custom"), d.keys.Groups)
	if isNull(node) {
		return
	}
	if !isMapping(node) {
		log.G(ctx).WithField("field", field).Warn("groups must be a mapping, ignoring them")
		return
	}

	d.Deployment.Groups = make(groups.Groups, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		logger := log.G(ctx).WithField("field", field).WithField("group", name)

		var raw map[string]any
		if err := node.Content[i+1].Decode(&raw); err != nil {
			logger.WithError(err).Warn("skipping malformed group")
			continue
		}
		d.Deployment.Groups[name] = d.decodeGroup(ctx, name, raw)
	}
}

func (d *Description) decodeGroup(ctx context.Context, name string, raw map[string]any) *groups.Group {
	g := &groups.Group{Vars: make(variable.Bag, len(raw))}
	for field, v := range raw {
		if field != d.keys.Statements {
			g.Vars[field] = variable.FromAny(v)
			continue
		}
		if v == nil {
			continue
		}
		logger := log.G(ctx).WithField("group", name).WithField("field", field)
		items, ok := v.([]any)
		if !ok {
			logger.Warnf("statements must be a list, got %T, ignoring them", v)
			continue
		}
		g.Statements = make([]*policy.Statement, 0, len(items))
		for i, item := range items {
			s, err := policy.DecodeStatement(item)
			if err != nil {
				logger.WithError(err).WithField("statement", i).Warn("skipping malformed statement")
				continue
			}
			g.Statements = append(g.Statements, s)
		}
	}
	return g
}

func (d *Description) extractFunctions(ctx context.Context) {
	node := lookup(d.root, "functions")
	if isNull(node) {
		return
	}
	if !isMapping(node) {
		log.G(ctx).WithField("field", "functions").Warn("functions must be a mapping, ignoring them")
		return
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var raw map[string]any
		if err := node.Content[i+1].Decode(&raw); err != nil {
			log.G(ctx).WithField("function", name).WithError(err).Warn("skipping malformed function")
			continue
		}
		target := &groups.Target{Name: name, Vars: make(variable.Bag, len(raw))}
		for field, v := range raw {
			if field == d.keys.Groups {
				refs := variable.FromAny(v)
				target.GroupRefs = &refs
				continue
			}
			target.Vars[field] = variable.FromAny(v)
		}
		d.Deployment.Targets = append(d.Deployment.Targets, target)
		d.decoded[name] = target.Vars.Clone()
	}
}

func (d *Description) extractStatements(ctx context.Context) {
	field := "provider." + d.keys.Statements
	node := lookup(lookup(d.root, "provider"), d.keys.Statements)
	if isNull(node) {
		return
	}
	if node.Kind != yaml.SequenceNode {
		log.G(ctx).WithField("field", field).Warn("shared statements must be a list, leaving them unchanged")
		d.keepStatements = true
		return
	}

	var statements []*policy.Statement
	for i, item := range node.Content {
		var raw any
		err := item.Decode(&raw)
		var s *policy.Statement
		if err == nil {
			s, err = policy.DecodeStatement(raw)
		}
		if err != nil {
			log.G(ctx).WithField("field", field).WithField("statement", i).WithError(err).
				Warn("keeping malformed statement out of deduplication")
			d.undecodable = append(d.undecodable, item)
			continue
		}
		statements = append(statements, s)
	}
	d.Deployment.Statements = policy.NewList(statements...)
}

// Service returns the service name, or "" when it is not a plain string.
func (d *Description) Service() string {
	n := lookup(d.root, "service")
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

// Encode writes the description, including the changes made to its
// Deployment, in the given format. Within a function only the fields a
// resolution changed are rewritten, and new fields are appended in key
// order.
func (d *Description) Encode(w io.Writer, format Format) error {
	if err := d.sync(); err != nil {
		return err
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d.root); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		var m map[string]any
		if err := d.root.Decode(&m); err != nil {
			return fmt.Errorf("failed to convert document: %w", err)
		}
		if err := toml.NewEncoder(w).SetIndentTables(true).Encode(m); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported service description format %q: %w", format, errdefs.ErrInvalidArgument)
}

// sync writes the Deployment back into the document tree.
func (d *Description) sync() error {
	if functions := lookup(d.root, "functions"); isMapping(functions) {
		for i := 0; i+1 < len(functions.Content); i += 2 {
			target, ok := d.Deployment.Target(functions.Content[i].Value)
			if !ok || target.GroupRefs == nil {
				continue
			}
			fn := resolveAlias(functions.Content[i+1])
			if !isMapping(fn) {
				fn = newMapping()
				functions.Content[i+1] = fn
			}
			if err := d.syncTarget(fn, target); err != nil {
				return fmt.Errorf("functions.%s: %w", target.Name, err)
			}
		}
	}

	if d.Deployment.Statements == nil || d.keepStatements {
		return nil
	}
	provider := lookup(d.root, "provider")
	if !isMapping(provider) {
		provider = newMapping()
		set(d.root, "provider", provider)
	}
	n, err := encodeNode(d.Deployment.Statements.Interface())
	if err != nil {
		return fmt.Errorf("provider.%s: %w", d.keys.Statements, err)
	}
	n.Content = append(n.Content, d.undecodable...)
	set(provider, d.keys.Statements, n)
	return nil
}

// syncTarget stores the fields of target that differ from what was decoded
// into the mapping node fn.
func (d *Description) syncTarget(fn *yaml.Node, target *groups.Target) error {
	decoded := d.decoded[target.Name]
	fields := make([]string, 0, len(target.Vars))
	for field := range target.Vars {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		v := target.Vars[field]
		if old, ok := decoded[field]; ok && variable.Equal(old, v) {
			continue
		}
		n, err := encodeNode(v.Interface())
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		set(fn, field, n)
	}
	if lookup(fn, d.keys.Groups) == nil {
		n, err := encodeNode(target.GroupRefs.Interface())
		if err != nil {
			return fmt.Errorf("%s: %w", d.keys.Groups, err)
		}
		set(fn, d.keys.Groups, n)
	}
	return nil
}
