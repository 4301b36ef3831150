// Package config groups every fixed path, URL, installer argument and polling
// constant of the bootstrap into one Config value.
//
// Default returns the built-in Windows values. An optional YAML file can
// overlay any field, and the recipe can be swapped for a built-in one by name.
package config
