package journal

import (
	"encoding/json"
	"fmt"

	"github.com/vk/buildgraphgo/internal/buildconfig"
	"github.com/vk/buildgraphgo/internal/graph"
	"github.com/vk/buildgraphgo/internal/label"
	"github.com/vk/buildgraphgo/internal/node"
)

// keyWire is the flat persisted form of every key kind; unused fields stay
// empty for a given kind.
type keyWire struct {
	Kind           string `json:"kind"`
	Repo           string `json:"repo,omitempty"`
	Checksum       string `json:"checksum,omitempty"`
	Label          string `json:"label,omitempty"`
	ConfigChecksum string `json:"config_checksum,omitempty"`
	AspectClass    string `json:"aspect_class,omitempty"`
	Groups         string `json:"groups,omitempty"`
}

type valueWire struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type recordWire struct {
	Key     keyWire   `json:"key"`
	Value   valueWire `json:"value"`
	Deps    []keyWire `json:"deps,omitempty"`
	Version int64     `json:"version"`
}

// configurationWire persists a configuration by its constituents; the
// checksum is recomputed on decode, so it can never drift from the content.
type configurationWire struct {
	Mnemonic string            `json:"mnemonic"`
	Options  map[string]string `json:"options"`
}

func encodeRecord(record graph.Record) ([]byte, error) {
	wire := recordWire{
		Key:     encodeKey(record.Key),
		Version: record.Version,
	}
	value, err := encodeValue(record.Value)
	if err != nil {
		return nil, fmt.Errorf("journal: encoding %s: %w", record.Key, err)
	}
	wire.Value = value
	for _, dep := range record.Deps {
		wire.Deps = append(wire.Deps, encodeKey(dep))
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("journal: encoding %s: %w", record.Key, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (graph.Record, error) {
	var wire recordWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return graph.Record{}, fmt.Errorf("journal: decoding record: %w", err)
	}

	key, err := decodeKey(wire.Key)
	if err != nil {
		return graph.Record{}, err
	}
	value, err := decodeValue(wire.Value)
	if err != nil {
		return graph.Record{}, fmt.Errorf("journal: decoding %s: %w", key, err)
	}
	record := graph.Record{Key: key, Value: value, Version: wire.Version}
	for _, depWire := range wire.Deps {
		dep, err := decodeKey(depWire)
		if err != nil {
			return graph.Record{}, err
		}
		record.Deps = append(record.Deps, dep)
	}
	return record, nil
}

func encodeKey(key node.Key) keyWire {
	wire := keyWire{Kind: string(key.Kind())}
	switch k := key.(type) {
	case node.RepoDirKey:
		wire.Repo = k.Repo
	case node.ConfigurationKey:
		wire.Checksum = k.Checksum
	case node.ConfiguredTargetKey:
		wire.Label = k.Label.String()
		wire.ConfigChecksum = k.ConfigChecksum
	case node.AspectKey:
		wire.Label = k.Base.Label.String()
		wire.ConfigChecksum = k.Base.ConfigChecksum
		wire.AspectClass = k.AspectClass
	case node.TargetCompletionKey:
		wire.Label = k.Target.Label.String()
		wire.ConfigChecksum = k.Target.ConfigChecksum
		wire.Groups = k.Groups
	case node.AspectCompletionKey:
		wire.Label = k.Aspect.Base.Label.String()
		wire.ConfigChecksum = k.Aspect.Base.ConfigChecksum
		wire.AspectClass = k.Aspect.AspectClass
		wire.Groups = k.Groups
	}
	return wire
}

func decodeKey(wire keyWire) (node.Key, error) {
	parseLabel := func() (label.Label, error) {
		return label.Parse(wire.Label)
	}
	switch node.Kind(wire.Kind) {
	case node.KindRepoDir:
		return node.RepoDirKey{Repo: wire.Repo}, nil
	case node.KindConfiguration:
		return node.ConfigurationKey{Checksum: wire.Checksum}, nil
	case node.KindConfiguredTarget:
		l, err := parseLabel()
		if err != nil {
			return nil, err
		}
		return node.ConfiguredTargetKey{Label: l, ConfigChecksum: wire.ConfigChecksum}, nil
	case node.KindAspect:
		l, err := parseLabel()
		if err != nil {
			return nil, err
		}
		return node.AspectKey{
			Base:        node.ConfiguredTargetKey{Label: l, ConfigChecksum: wire.ConfigChecksum},
			AspectClass: wire.AspectClass,
		}, nil
	case node.KindTargetCompletion:
		l, err := parseLabel()
		if err != nil {
			return nil, err
		}
		return node.TargetCompletionKey{
			Target: node.ConfiguredTargetKey{Label: l, ConfigChecksum: wire.ConfigChecksum},
			Groups: wire.Groups,
		}, nil
	case node.KindAspectCompletion:
		l, err := parseLabel()
		if err != nil {
			return nil, err
		}
		return node.AspectCompletionKey{
			Aspect: node.AspectKey{
				Base:        node.ConfiguredTargetKey{Label: l, ConfigChecksum: wire.ConfigChecksum},
				AspectClass: wire.AspectClass,
			},
			Groups: wire.Groups,
		}, nil
	default:
		return nil, fmt.Errorf("journal: unknown key kind %q", wire.Kind)
	}
}

func encodeValue(value node.Value) (valueWire, error) {
	switch v := value.(type) {
	case *node.RepoDirValue:
		return payload("repo-dir", v)
	case *node.ConfigurationValue:
		cfg := v.Configuration
		options := make(map[string]string)
		for _, name := range cfg.OptionNames() {
			opt, _ := cfg.Option(name)
			options[name] = opt
		}
		return payload("configuration", configurationWire{Mnemonic: cfg.Mnemonic(), Options: options})
	case *node.ConfiguredTargetValue:
		return payload("configured-target", v)
	case *node.AspectValue:
		return payload("aspect", v)
	case *node.CompletionValue:
		return valueWire{Kind: "completion"}, nil
	default:
		return valueWire{}, fmt.Errorf("unsupported value type %T", value)
	}
}

func payload(kind string, v any) (valueWire, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return valueWire{}, err
	}
	return valueWire{Kind: kind, Payload: data}, nil
}

func decodeValue(wire valueWire) (node.Value, error) {
	switch wire.Kind {
	case "repo-dir":
		var v node.RepoDirValue
		if err := json.Unmarshal(wire.Payload, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case "configuration":
		var cw configurationWire
		if err := json.Unmarshal(wire.Payload, &cw); err != nil {
			return nil, err
		}
		return &node.ConfigurationValue{Configuration: buildconfig.New(cw.Mnemonic, cw.Options)}, nil
	case "configured-target":
		var v node.ConfiguredTargetValue
		if err := json.Unmarshal(wire.Payload, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case "aspect":
		var v node.AspectValue
		if err := json.Unmarshal(wire.Payload, &v); err != nil {
			return nil, err
		}
		return &v, nil
	case "completion":
		return node.Completed, nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", wire.Kind)
	}
}
