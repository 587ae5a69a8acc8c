// Package constants centralizes configuration defaults shared across the CLI.
//
// Keeping timeouts, retry budgets, and concurrency caps in one place prevents
// magic numbers from scattering across cmd/ and internal/. The values here are
// conservative defaults that can be referenced from multiple packages without
// introducing import cycles.
package constants
