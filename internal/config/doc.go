// Package config defines the server's typed settings and loads them with
// viper from defaults, an optional YAML file and TODO_-prefixed environment
// variables. Loaded values are checked with validator struct tags.
package config
