package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill"
	"go.yaml.in/yaml/v3"

	"github.com/drblury/notiflow/internal/runtime/delivery"
	errspkg "github.com/drblury/notiflow/internal/runtime/errors"
	"github.com/drblury/notiflow/plugin"
)

type loader struct {
	cfg  *Config
	opts loadOptions
	wm   watermill.LoggerAdapter

	destinationParams map[string]plugin.Params
}

type namedNode struct {
	name string
	node *yaml.Node
}

// mappingEntries returns the key/value pairs of a mapping section in document order.
func mappingEntries(section string, node *yaml.Node) ([]namedNode, error) {
	if node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errspkg.NewConfigValidationError(fmt.Errorf("%s must be a mapping", section))
	}
	out := make([]namedNode, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, namedNode{name: node.Content[i].Value, node: node.Content[i+1]})
	}
	return out, nil
}

func decodeParams(where string, node *yaml.Node) (plugin.Params, error) {
	params := plugin.Params{}
	if node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return params, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errspkg.NewConfigValidationError(fmt.Errorf("%s must be a mapping", where))
	}
	if err := node.Decode(&params); err != nil {
		return nil, errspkg.NewConfigValidationError(fmt.Errorf("%s: %w", where, err))
	}
	return params, nil
}

func decodeList(where string, node *yaml.Node) ([]*yaml.Node, error) {
	if node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, errspkg.NewConfigValidationError(fmt.Errorf("%s must be a list", where))
	}
	return node.Content, nil
}

func className(name string, params plugin.Params) (string, error) {
	if !params.Has(KeyClassName) || params[KeyClassName] == nil {
		return name, nil
	}
	return params.String(KeyClassName)
}

func (l *loader) loadModules(_ context.Context, _ map[string]*yaml.Node) error {
	paths, err := plugin.Params(l.cfg.tree).Strings(SectionCustomModules)
	if err != nil {
		return errspkg.NewConfigValidationError(err)
	}
	l.cfg.customModules = paths
	if len(paths) == 0 {
		return nil
	}
	resolved := make([]string, len(paths))
	for i, p := range paths {
		if !filepath.IsAbs(p) && l.opts.baseDir != "" {
			p = filepath.Join(l.opts.baseDir, p)
		}
		resolved[i] = p
	}
	loaded, err := plugin.NewLoader(resolved).Load(l.opts.registry)
	if err != nil {
		return err
	}
	l.cfg.loadedModules = loaded
	return nil
}

func (l *loader) loadSources(ctx context.Context, sections map[string]*yaml.Node) error {
	entries, err := mappingEntries(SectionSources, sections[SectionSources])
	if err != nil {
		return err
	}
	for _, e := range entries {
		params, err := decodeParams("source "+e.name, e.node)
		if err != nil {
			return err
		}
		class, err := className(e.name, params)
		if err != nil {
			return fmt.Errorf("source %q: %w", e.name, err)
		}
		src, err := l.opts.registry.BuildSource(ctx, class, e.name, params.Without(KeyClassName), l.wm)
		if err != nil {
			return fmt.Errorf("source %q: %w", e.name, err)
		}
		l.cfg.sources[e.name] = src
		l.cfg.sourceOrder = append(l.cfg.sourceOrder, e.name)
	}
	return nil
}

func (l *loader) loadDestinations(ctx context.Context, sections map[string]*yaml.Node) error {
	entries, err := mappingEntries(SectionDestinations, sections[SectionDestinations])
	if err != nil {
		return err
	}
	l.destinationParams = make(map[string]plugin.Params, len(entries))
	for _, e := range entries {
		params, err := decodeParams("destination "+e.name, e.node)
		if err != nil {
			return err
		}
		class, err := className(e.name, params)
		if err != nil {
			return fmt.Errorf("destination %q: %w", e.name, err)
		}
		ctorParams := params.Without(append([]string{KeyClassName}, bindingKeys...)...)
		dst, err := l.opts.registry.BuildDestination(ctx, class, e.name, ctorParams, l.wm)
		if err != nil {
			return fmt.Errorf("destination %q: %w", e.name, err)
		}
		l.cfg.destinations[e.name] = delivery.Endpoint{Destination: dst}
		l.cfg.destinationOrder = append(l.cfg.destinationOrder, e.name)
		l.destinationParams[e.name] = params
	}
	return nil
}

func (l *loader) loadFormattersAndFilterers(context.Context, map[string]*yaml.Node) error {
	for _, name := range ComponentsByKey(l.cfg.tree, KeyFormatter) {
		f, err := l.opts.registry.Formatter(name)
		if err != nil {
			return err
		}
		l.cfg.formatters[name] = f
	}
	for _, name := range ComponentsByKey(l.cfg.tree, KeyFilterer) {
		f, err := l.opts.registry.Filterer(name)
		if err != nil {
			return err
		}
		l.cfg.filterers[name] = f
	}
	return nil
}

func (l *loader) bindDestinations(context.Context, map[string]*yaml.Node) error {
	for _, name := range l.cfg.destinationOrder {
		b, err := l.cfg.parseBinding(l.destinationParams[name])
		if err != nil {
			return fmt.Errorf("destination %q: %w", name, err)
		}
		ep := l.cfg.destinations[name]
		ep.Binding = b
		l.cfg.destinations[name] = ep
	}
	return nil
}

func (l *loader) loadGroups(_ context.Context, sections map[string]*yaml.Node) error {
	entries, err := mappingEntries(SectionMessageGroups, sections[SectionMessageGroups])
	if err != nil {
		return err
	}
	for _, e := range entries {
		items, err := decodeList("message group "+e.name, e.node)
		if err != nil {
			return err
		}
		group := delivery.Group{Name: e.name, Receivers: make([]delivery.Receiver, 0, len(items))}
		for i, item := range items {
			where := fmt.Sprintf("message group %q receiver %d", e.name, i)
			params, err := decodeParams(where, item)
			if err != nil {
				return err
			}
			dest, err := params.String(KeyDest)
			if err != nil {
				return errspkg.NewConfigValidationError(fmt.Errorf("%s: %w", where, err))
			}
			b, err := l.cfg.parseBinding(params)
			if err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
			group.Receivers = append(group.Receivers, delivery.Receiver{
				Dest:    dest,
				Binding: b,
				Extra:   params.Without(append([]string{KeyDest}, bindingKeys...)...),
			})
		}
		l.cfg.groups[e.name] = group
		l.cfg.groupOrder = append(l.cfg.groupOrder, e.name)
	}
	return nil
}

func (l *loader) loadJobs(_ context.Context, sections map[string]*yaml.Node) error {
	entries, err := mappingEntries(SectionJobs, sections[SectionJobs])
	if err != nil {
		return err
	}
	for _, e := range entries {
		job, err := parseJob(e.name, e.node)
		if err != nil {
			return err
		}
		l.cfg.jobs[e.name] = job
		l.cfg.jobOrder = append(l.cfg.jobOrder, e.name)
	}
	return nil
}

func parseJob(name string, node *yaml.Node) (Job, error) {
	job := Job{Name: name}
	fields, err := mappingEntries("job "+name, node)
	if err != nil {
		return job, err
	}
	for _, f := range fields {
		switch f.name {
		case KeyGetMessages:
			items, err := decodeList(fmt.Sprintf("job %q %s", name, KeyGetMessages), f.node)
			if err != nil {
				return job, err
			}
			for i, item := range items {
				where := fmt.Sprintf("job %q %s[%d]", name, KeyGetMessages, i)
				params, err := decodeParams(where, item)
				if err != nil {
					return job, err
				}
				service, err := params.String(KeyService)
				if err != nil {
					return job, errspkg.NewConfigValidationError(fmt.Errorf("%s: %w", where, err))
				}
				job.Sources = append(job.Sources, SourceCall{Service: service, Params: params.Without(KeyService)})
			}
		case KeySendMessages:
			items, err := decodeList(fmt.Sprintf("job %q %s", name, KeySendMessages), f.node)
			if err != nil {
				return job, err
			}
			for i, item := range items {
				where := fmt.Sprintf("job %q %s[%d]", name, KeySendMessages, i)
				target, err := parseTarget(where, item)
				if err != nil {
					return job, err
				}
				job.Targets = append(job.Targets, target)
			}
		}
	}
	return job, nil
}

func parseTarget(where string, node *yaml.Node) (Target, error) {
	if node.Kind == yaml.ScalarNode {
		return Target{Name: node.Value, Extra: plugin.Params{}}, nil
	}
	params, err := decodeParams(where, node)
	if err != nil {
		return Target{}, err
	}
	name, err := params.String(KeyTarget)
	if err != nil {
		return Target{}, errspkg.NewConfigValidationError(fmt.Errorf("%s: %w", where, err))
	}
	for _, key := range bindingKeys {
		if params.Has(key) {
			return Target{}, errspkg.NewConfigValidationError(fmt.Errorf(
				"%s: %q is not allowed on a send target; bind it on the destination or group receiver", where, key))
		}
	}
	return Target{Name: name, Extra: params.Without(KeyTarget)}, nil
}
