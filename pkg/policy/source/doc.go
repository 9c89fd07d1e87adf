// Package source provides the places policies are loaded from.
//
// A PolicySource returns parsed policies and reports changes. FileSource
// reads a single YAML file or a directory tree of *.yaml and *.yml files
// and watches it with fsnotify. MemorySource serves tests and embedded
// use. The git package adds a repository-backed source on top of
// FileSource.
//
// Sources do not validate or normalize; the manager package does that
// before policies reach the engine.
package source
