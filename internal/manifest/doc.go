// Package manifest handles parsing and validation of installer manifests.
// A manifest declares the application identity, the ordered list of files to
// copy from the build output tree, optional tasks, shortcuts, and programs to
// run after installation. Documents may be written in YAML, TOML, or JSON;
// all three are checked against the embedded JSON schema and then against
// cross-reference rules (task gates, shortcut targets) before use.
package manifest
