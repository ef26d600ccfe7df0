// Package textutil provides text processing utilities for cleaning
// reference passages and building filesystem-safe names.
//
// The primary use cases are:
//   - Stripping exercise scaffolding (line numbers, instruction lines)
//     from pasted reference texts before tokenization
//   - Sanitizing filenames and path segments for safe filesystem use
package textutil
