package cache

import "strings"

// kindMarkers is the ordered classification table. Categories are tested
// top to bottom and the first match wins; markers are not mutually
// exclusive (a path can contain both "target" and "docker"), so the order
// here is load-bearing and must not be reshuffled.
var kindMarkers = []struct {
	kind    Kind
	markers []string
}{
	{KindJavaScript, []string{"node_modules", ".next", ".nuxt", ".vite", ".turbo", ".parcel-cache"}},
	{KindPython, []string{"__pycache__", ".pytest_cache", ".venv", "venv", ".tox", ".mypy_cache", ".ruff_cache", ".pip-cache"}},
	{KindRust, []string{"target", "cargo"}},
	{KindJava, []string{".gradle", ".m2"}},
	{KindMachineLearning, []string{"huggingface", "torch", "transformers", ".dvc", "wandb"}},
	{KindNpx, []string{"_npx"}},
	{KindDocker, []string{"docker"}},
}

// Classify maps a path to its cache kind by case-insensitive substring
// matching against the marker table. Pure and total: every path maps to
// exactly one kind, defaulting to Generic.
func Classify(path string) Kind {
	p := strings.ToLower(path)

	for _, row := range kindMarkers {
		for _, marker := range row.markers {
			if strings.Contains(p, marker) {
				return row.kind
			}
		}
		// A gradle build output only reveals itself by co-occurrence:
		// "build" alone is too generic to claim a category.
		if row.kind == KindJava && strings.Contains(p, "build") && strings.Contains(p, "gradle") {
			return KindJava
		}
	}

	return KindGeneric
}
