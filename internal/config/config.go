package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/voxctl/internal/jurisdiction"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "VOXCTL"

var (
	ErrMissingID          = errors.New("config: missing id")
	ErrMissingName        = errors.New("config: missing name")
	ErrInvalidInterval    = errors.New("config: advertise_interval must be positive")
	ErrConflictingSources = errors.New("config: jurisdiction_file cannot be combined with root/end_nodes")
)

// fileConfig is the node.toml key mapping.
type fileConfig struct {
	ID                string   `toml:"id"`
	Name              string   `toml:"name"`
	NodeType          string   `toml:"node_type"`
	JurisdictionFile  string   `toml:"jurisdiction_file"`
	Root              string   `toml:"root"`
	EndNodes          []string `toml:"end_nodes"`
	AdvertiseInterval string   `toml:"advertise_interval"`
	AdminAddr         string   `toml:"admin_addr"`
}

// envOverrides are read from VOXCTL_* variables and win over the file.
type envOverrides struct {
	Name              string        `envconfig:"NAME"`
	JurisdictionFile  string        `envconfig:"JURISDICTION_FILE"`
	AdvertiseInterval time.Duration `envconfig:"ADVERTISE_INTERVAL"`
	AdminAddr         string        `envconfig:"ADMIN_ADDR"`
}

// NodeConfig is the runtime configuration of one voxel server node.
type NodeConfig struct {
	ID                uuid.UUID
	Name              string
	NodeType          jurisdiction.NodeType
	JurisdictionFile  string
	Root              string
	EndNodes          []string
	AdvertiseInterval time.Duration
	AdminAddr         string
}

func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		ID:                uuid.New(),
		Name:              "voxnode",
		NodeType:          jurisdiction.NodeTypeVoxelServer,
		AdvertiseInterval: 5 * time.Second,
	}
}

// LoadNodeConfig overlays the TOML file at path, then the environment, onto
// the defaults and validates the result.
func LoadNodeConfig(path string) (NodeConfig, error) {
	cfg := DefaultNodeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return NodeConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("id") {
		id, err := uuid.Parse(strings.TrimSpace(raw.ID))
		if err != nil {
			return NodeConfig{}, fmt.Errorf("parse id: %w", err)
		}
		cfg.ID = id
	}
	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("node_type") {
		t, err := jurisdiction.ParseNodeType(raw.NodeType)
		if err != nil {
			return NodeConfig{}, err
		}
		cfg.NodeType = t
	}
	if meta.IsDefined("jurisdiction_file") {
		cfg.JurisdictionFile = strings.TrimSpace(raw.JurisdictionFile)
	}
	if meta.IsDefined("root") {
		cfg.Root = strings.TrimSpace(raw.Root)
	}
	if meta.IsDefined("end_nodes") {
		cfg.EndNodes = normalizeCodes(raw.EndNodes)
	}
	if meta.IsDefined("advertise_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.AdvertiseInterval))
		if err != nil {
			return NodeConfig{}, fmt.Errorf("parse advertise_interval: %w", err)
		}
		cfg.AdvertiseInterval = d
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return NodeConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return NodeConfig{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays VOXCTL_* environment variables onto cfg.
func ApplyEnv(cfg *NodeConfig) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("config env: %w", err)
	}
	if env.Name != "" {
		cfg.Name = env.Name
	}
	if env.JurisdictionFile != "" {
		cfg.JurisdictionFile = env.JurisdictionFile
		cfg.Root = ""
		cfg.EndNodes = nil
	}
	if env.AdvertiseInterval != 0 {
		cfg.AdvertiseInterval = env.AdvertiseInterval
	}
	if env.AdminAddr != "" {
		cfg.AdminAddr = env.AdminAddr
	}
	return nil
}

func Validate(cfg NodeConfig) error {
	if cfg.ID == uuid.Nil {
		return ErrMissingID
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return ErrMissingName
	}
	if cfg.AdvertiseInterval <= 0 {
		return ErrInvalidInterval
	}
	if cfg.JurisdictionFile != "" && (cfg.Root != "" || len(cfg.EndNodes) > 0) {
		return ErrConflictingSources
	}
	return nil
}

// Jurisdiction builds the map the node claims, from its file when one is
// configured and from the inline hex codes otherwise.
func (c NodeConfig) Jurisdiction(opts ...jurisdiction.Option) (*jurisdiction.Map, error) {
	if c.JurisdictionFile != "" {
		return jurisdiction.FromFile(c.JurisdictionFile, c.NodeType, opts...)
	}
	root := c.Root
	if root == "" {
		root = "00"
	}
	return jurisdiction.FromHex(c.NodeType, root, strings.Join(c.EndNodes, ","), opts...)
}

func normalizeCodes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
