// Package config defines the format-agnostic workspace manifest model, along
// with the Loader interface for reading it from various sources.
//
// The config.Model is the single source of truth for the rules and app
// packages: it names the external repositories, build configurations,
// targets, and aspects of one workspace. The concrete HCL implementation
// lives in the hcl_adapter package.
package config
