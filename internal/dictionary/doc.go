// Package dictionary loads data dictionaries and enforces them on
// imported tables.
//
// Dictionaries follow the frictionless table schema shape: an ID and a
// list of fields, each with a name, a type and an optional date format.
// They are read from JSON, YAML or CUE files into a Registry.
//
// Discovery decides which dictionary applies to a resource:
//
//	none       no enforcement; the stage is skipped
//	inline     the dictionary carried on the resource
//	reference  the registry entry named by Resource.DescribedBy
//
// Enforcer is the post-import processor that retypes table columns to
// match the dictionary.
package dictionary
