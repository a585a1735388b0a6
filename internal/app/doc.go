// Package app contains the core application logic. It wires the transform
// steps, the task registry, the watcher and the dev server together from a
// loaded configuration, and runs the requested tasks, decoupled from any
// specific entrypoint like a CLI.
package app
