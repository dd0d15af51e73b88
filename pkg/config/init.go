package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const configHeader = `# vfinder Configuration File
#
# Every value can be overridden with an environment variable named after
# its path, e.g. VFINDER_LOGGING_LEVEL=DEBUG or VFINDER_ADAPTERS_HTTP_PORT=9000.
`

// InitConfig writes a sample configuration file to the default location
// and returns its path.
//
// Returns an error if the file already exists and force is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path.
//
// Returns an error if the file already exists and force is false.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// field is one commented key of a generated mapping.
type field struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg as a commented YAML document.
//
// Durations and sizes are written in their human form ("30s", "100MiB") so
// that the file round-trips through Load.
func generateYAMLWithComments(cfg *Config) (string, error) {
	storages := &yaml.Node{Kind: yaml.SequenceNode}
	for _, s := range cfg.Storages {
		n, err := storageNode(s)
		if err != nil {
			return "", err
		}
		storages.Content = append(storages.Content, n)
	}

	links := make([]map[string]string, 0, len(cfg.PublicLinks))
	for _, l := range cfg.PublicLinks {
		links = append(links, map[string]string{"prefix": l.Prefix, "url": l.URL})
	}
	exclusions := cfg.PublicExclusions
	if exclusions == nil {
		exclusions = []string{}
	}

	http := cfg.Adapters.HTTP
	lambda := cfg.Adapters.Lambda

	doc, err := mapping(
		field{"logging", "Logging: level DEBUG|INFO|WARN|ERROR, format text|json, output stdout|stderr|<file>", mustMapping(
			field{"level", "", cfg.Logging.Level},
			field{"format", "", cfg.Logging.Format},
			field{"output", "", cfg.Logging.Output},
		)},
		field{"server", "", mustMapping(
			field{"shutdown_timeout", "Maximum time to wait for in-flight requests on shutdown", cfg.Server.ShutdownTimeout.String()},
			field{"metrics", "Prometheus endpoint, served on /metrics", mustMapping(
				field{"enabled", "", cfg.Server.Metrics.Enabled},
				field{"port", "", cfg.Server.Metrics.Port},
			)},
		)},
		field{"app_url", "Public base URL of this server. Empty derives it from each request.", cfg.AppURL},
		field{"storages", strings.Join([]string{
			"Storages in display order, the first one is the default.",
			"Types: local (root), memory, s3 (bucket, region, endpoint, key_prefix,",
			"access_key_id, secret_access_key), badger (db_path, in_memory).",
			"#",
			"  - name: media",
			"    type: s3",
			"    read_only: true",
			"    public_base_url: https://cdn.example.com",
			"    s3:",
			"      bucket: my-bucket",
			"      region: eu-west-1",
		}, "\n"), storages},
		field{"public_links", "Path prefixes mapped to public base URLs, first match wins", links},
		field{"public_exclusions", "Path prefixes that never get a public URL", exclusions},
		field{"action", "", mustMapping(
			field{"temp_dir", "Scratch space for archive/unarchive. Empty uses the OS temp dir.", cfg.Action.TempDir},
			field{"thumbnail_width", "Default thumbnail width in pixels", cfg.Action.ThumbnailWidth},
		)},
		field{"adapters", "", mustMapping(
			field{"http", "Standalone HTTP server", mustMapping(
				field{"enabled", "", http.Enabled},
				field{"port", "", http.Port},
				field{"base_path", "", http.BasePath},
				field{"max_upload_size", "", http.MaxUploadSize},
				field{"cors_origin", "Access-Control-Allow-Origin, empty allows any origin", http.CORSOrigin},
				field{"rate_limit", "Requests per second per client IP, 0 disables limiting", http.RateLimit},
				field{"rate_burst", "", http.RateBurst},
				field{"read_timeout", "", http.ReadTimeout.String()},
				field{"write_timeout", "", http.WriteTimeout.String()},
				field{"idle_timeout", "", http.IdleTimeout.String()},
				field{"shutdown_timeout", "", http.ShutdownTimeout.String()},
			)},
			field{"lambda", "AWS Lambda behind API Gateway, used by vfinder-lambda", mustMapping(
				field{"enabled", "", lambda.Enabled},
				field{"base_path", "", lambda.BasePath},
				field{"max_upload_size", "", lambda.MaxUploadSize},
				field{"cors_origin", "", lambda.CORSOrigin},
			)},
		)},
	)
	if err != nil {
		return "", err
	}

	out, err := yaml.Marshal(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}})
	if err != nil {
		return "", err
	}
	return configHeader + "\n" + string(out), nil
}

func storageNode(s StorageConfig) (*yaml.Node, error) {
	fields := []field{
		{"name", "", s.Name},
		{"type", "", s.Type},
		{"read_only", "", s.ReadOnly},
	}
	if s.Public != nil {
		fields = append(fields, field{"public", "", *s.Public})
	}
	if s.PublicBaseURL != "" {
		fields = append(fields, field{"public_base_url", "", s.PublicBaseURL})
	}
	if s.PublicPrefix != "" {
		fields = append(fields, field{"public_prefix", "", s.PublicPrefix})
	}

	switch s.Type {
	case "local":
		fields = append(fields, field{"local", "", s.Local})
	case "s3":
		fields = append(fields, field{"s3", "", s.S3})
	case "badger":
		fields = append(fields, field{"badger", "", s.Badger})
	}
	return mapping(fields...)
}

// mapping builds a mapping node, keeping the order of fields.
func mapping(fields ...field) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: f.key, HeadComment: f.comment}

		value, ok := f.value.(*yaml.Node)
		if !ok {
			value = &yaml.Node{}
			if err := value.Encode(f.value); err != nil {
				return nil, fmt.Errorf("encode %s: %w", f.key, err)
			}
		}
		n.Content = append(n.Content, key, value)
	}
	return n, nil
}

// mustMapping is mapping for values that always encode (scalars and maps
// of scalars).
func mustMapping(fields ...field) *yaml.Node {
	n, err := mapping(fields...)
	if err != nil {
		panic(err)
	}
	return n
}
