// Package capability builds the named capability maps (services,
// controllers) that the request pipeline injects into every request.
//
// Implementations are registered in a compile-time Registry. A descriptor
// directory decides which of them are loaded: every *.yaml or *.yml file
// in the directory names one capability by its base name and carries the
// settings handed to that capability's factory. Other files are ignored.
//
// Loading happens once at startup and is all or nothing. An unreadable
// directory, two descriptors resolving to the same name, a descriptor with
// no registered implementation or a failing factory all abort the load.
// The resulting Map is never mutated and is shared by all requests.
package capability
