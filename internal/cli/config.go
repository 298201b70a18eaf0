package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/innkeeper/internal/paths"
	"github.com/mesh-intelligence/innkeeper/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// envPrefix lets INNKEEPER_BLUEPRINT_STAGE override blueprint.stage.
	envPrefix = "INNKEEPER"

	cfgKeyDataDir      = "data_dir"
	cfgKeyName         = "blueprint.name"
	cfgKeyDescription  = "blueprint.description"
	cfgKeyMethod       = "blueprint.method"
	cfgKeyStage        = "blueprint.stage"
	cfgKeyEndpointType = "blueprint.endpoint_type"
	cfgKeyDeployDelay  = "blueprint.deploy_delay"
	cfgKeyRootBody     = "blueprint.root_body"
	cfgKeyResources    = "blueprint.resources"
)

const configHeader = `# innkeeper configuration
#
# blueprint describes the REST API created by "innkeeper setup". Every
# resource answers through a MOCK integration with the given body.
# Paths may have several segments, e.g. rooms/{roomId}.
#
# Any key can be overridden from the environment, e.g.
# INNKEEPER_BLUEPRINT_STAGE=dev.

`

// appConfig is the decoded config.yaml.
type appConfig struct {
	DataDir   string          `mapstructure:"data_dir"`
	Blueprint types.Blueprint `mapstructure:"blueprint"`
}

// configFile is the on-disk layout of config.yaml. Durations are written
// as strings such as "10s".
type configFile struct {
	DataDir   string        `yaml:"data_dir,omitempty"`
	Blueprint blueprintFile `yaml:"blueprint"`
}

type blueprintFile struct {
	Name         string               `yaml:"name"`
	Description  string               `yaml:"description"`
	Method       string               `yaml:"method"`
	Stage        string               `yaml:"stage"`
	EndpointType string               `yaml:"endpoint_type"`
	DeployDelay  string               `yaml:"deploy_delay"`
	RootBody     string               `yaml:"root_body"`
	Resources    []types.ResourceSpec `yaml:"resources"`
}

func toBlueprintFile(b types.Blueprint) blueprintFile {
	return blueprintFile{
		Name:         b.Name,
		Description:  b.Description,
		Method:       b.Method,
		Stage:        b.Stage,
		EndpointType: b.EndpointType,
		DeployDelay:  b.DeployDelay.String(),
		RootBody:     b.RootBody,
		Resources:    b.Resources,
	}
}

// resolveConfigDir returns the configuration directory following the
// precedence flag > INNKEEPER_CONFIG_DIR env > platform default.
func resolveConfigDir(flag string) (string, error) {
	return paths.ResolveConfigDir(flag)
}

// loadConfig reads config.yaml from configDir using Viper. A missing
// config.yaml is not an error; defaults apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			v.Set(cfgKeyDataDir, "")
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	// INNKEEPER_DATA_DIR ranks below config.yaml, so data_dir must not
	// come through AutomaticEnv.
	dataDir, err := fileDataDir(v.ConfigFileUsed())
	if err != nil {
		return nil, err
	}
	v.Set(cfgKeyDataDir, dataDir)
	return v, nil
}

// fileDataDir returns data_dir exactly as written in the config file.
func fileDataDir(path string) (string, error) {
	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType(configFileType)
	if err := fv.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	return fv.GetString(cfgKeyDataDir), nil
}

func setDefaults(v *viper.Viper) {
	bp := types.DefaultBlueprint()
	v.SetDefault(cfgKeyName, bp.Name)
	v.SetDefault(cfgKeyDescription, bp.Description)
	v.SetDefault(cfgKeyMethod, bp.Method)
	v.SetDefault(cfgKeyStage, bp.Stage)
	v.SetDefault(cfgKeyEndpointType, bp.EndpointType)
	v.SetDefault(cfgKeyDeployDelay, bp.DeployDelay)
	v.SetDefault(cfgKeyRootBody, bp.RootBody)

	resources := make([]map[string]any, 0, len(bp.Resources))
	for _, r := range bp.Resources {
		resources = append(resources, map[string]any{"path": r.Path, "method": r.Method, "body": r.Body})
	}
	v.SetDefault(cfgKeyResources, resources)
}

// decodeConfig unmarshals the merged defaults, file, environment and bound
// flags.
func decodeConfig(v *viper.Viper) (appConfig, error) {
	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return appConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// writeDefaultConfig creates config.yaml with default values if the file
// does not exist. It reports whether a file was written.
func writeDefaultConfig(configDir string) (bool, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}

	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(configFile{Blueprint: toBlueprintFile(types.DefaultBlueprint())})
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
