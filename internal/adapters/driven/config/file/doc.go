// Package file stores settings in a single config file. The extension
// picks the encoding: .yaml and .yml use YAML, anything else TOML.
// Sections in the file surface as dotted keys.
package file
