package jurisdiction

import (
	"fmt"
	"strings"

	"github.com/danmuck/voxctl/internal/octal"
	"gopkg.in/ini.v1"
)

const (
	keyRoot         = "root"
	sectionEndNodes = "endNodes"
)

// FromHex builds a map from the hex root and a comma separated list of hex
// end nodes, kept in list order. A blank list means no end nodes.
func FromHex(t NodeType, rootHex, endNodesCSV string, opts ...Option) (*Map, error) {
	m := newMap(t, opts)
	m.log.Debug().Str("root", rootHex).Str("end_nodes", endNodesCSV).Msg("jurisdiction parse hex")
	root, err := octal.ParseHex(rootHex)
	if err != nil {
		return nil, fmt.Errorf("%w: root: %w", ErrParse, err)
	}
	var ends []octal.Code
	if strings.TrimSpace(endNodesCSV) != "" {
		for i, raw := range strings.Split(endNodesCSV, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				return nil, fmt.Errorf("%w: end node %d is blank", ErrParse, i)
			}
			code, err := octal.ParseHex(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: end node %d: %w", ErrParse, i, err)
			}
			ends = append(ends, code)
		}
	}
	m.Init(root, ends)
	m.log.Debug().Str("root", root.Hex()).Int("end_nodes", len(ends)).Msg("jurisdiction parsed")
	return m, nil
}

// FromFile loads a map from an INI file:
//
//	root = 0160
//	[endNodes]
//	endnode0 = 02A0
//
// A missing root means the degenerate root. End nodes come back in the order
// the file lists them; other writers may not preserve that order.
func FromFile(path string, t NodeType, opts ...Option) (*Map, error) {
	m := newMap(t, opts)
	m.log.Debug().Str("path", path).Msg("jurisdiction read file")
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("jurisdiction load failed (%s): %w", path, err)
	}
	rootHex := cfg.Section(ini.DefaultSection).Key(keyRoot).MustString(octal.Root().Hex())
	root, err := octal.ParseHex(rootHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: root: %w", ErrParse, path, err)
	}

	var ends []octal.Code
	if sec, err := cfg.GetSection(sectionEndNodes); err == nil {
		for _, key := range sec.Keys() {
			code, err := octal.ParseHex(key.String())
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %s: %w", ErrParse, path, key.Name(), err)
			}
			m.log.Debug().Str("key", key.Name()).Str("end_node", code.Hex()).Msg("jurisdiction end node")
			ends = append(ends, code)
		}
	}
	m.Init(root, ends)
	m.log.Debug().Str("path", path).Str("root", root.Hex()).Int("end_nodes", len(ends)).Msg("jurisdiction file loaded")
	return m, nil
}

// WriteFile saves the map in the format FromFile reads, replacing path.
func (m *Map) WriteFile(path string) error {
	cfg := ini.Empty()
	root := octal.Root().Hex()
	if m.root != nil {
		root = m.root.Hex()
	}
	if _, err := cfg.Section(ini.DefaultSection).NewKey(keyRoot, root); err != nil {
		return fmt.Errorf("jurisdiction write failed (%s): %w", path, err)
	}
	if len(m.endNodes) > 0 {
		sec, err := cfg.NewSection(sectionEndNodes)
		if err != nil {
			return fmt.Errorf("jurisdiction write failed (%s): %w", path, err)
		}
		for i, e := range m.endNodes {
			if _, err := sec.NewKey(fmt.Sprintf("endnode%d", i), e.Hex()); err != nil {
				return fmt.Errorf("jurisdiction write failed (%s): %w", path, err)
			}
		}
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("jurisdiction write failed (%s): %w", path, err)
	}
	return nil
}
