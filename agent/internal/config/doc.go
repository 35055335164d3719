// Package config loads and watches the agent configuration file (config.yaml).
//
// Top-level types:
//   - Config{Agent}: full config tree parsed from YAML
//   - AgentConfig: state_path, sources [], keywords, fetch, schedule, notify,
//     metrics, logging
//   - ChannelConfig: type (telegram|slack|http), token_env, chat_id_env,
//     url_env, api_base; Token(), ChatID() and URL() resolve from the environment
//
// Load(path) starts from Defaults(), which carries the compiled-in list of
// monitored pages and keyword lists, unmarshals the YAML file over it, then
// validates required fields and enums. An empty path yields the defaults.
//
// LoadEnv loads KEY=value pairs from a .env file without overriding variables
// already set in the process environment.
//
// Watch(ctx, path, onChange) uses fsnotify on the file's directory and calls
// onChange with the newly parsed Config whenever the file is written or
// replaced.
package config
